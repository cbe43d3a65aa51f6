package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog"

	"github.com/rrattigan/Belleview-Hospital/internal/clinic"
	"github.com/rrattigan/Belleview-Hospital/internal/db"
	"github.com/rrattigan/Belleview-Hospital/internal/lock"
)

var specialties = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "seed").Logger()
	logger.Info().Msg("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		logger.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	repo := clinic.NewPgRepository(pool)
	if err := repo.Migrate(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("migrate")
	}

	svc := clinic.NewService(repo, lock.NewLocalDoctorLocker(), clinic.NewIDGenerator(), 3000.00, logger)
	if err := svc.SyncIdentifiers(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("sync identifiers")
	}

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedDoctors(context.Background(), svc, 20); err != nil {
		logger.Fatal().Err(err).Msg("seed doctors")
	}
	if err := seedPatients(context.Background(), svc, 200); err != nil {
		logger.Fatal().Err(err).Msg("seed patients")
	}

	logger.Info().Msg("seed complete")
}

// seedDoctors registers doctors, each with a week of half-hour morning slots
// starting tomorrow.
func seedDoctors(ctx context.Context, svc *clinic.Service, count int) error {
	for i := 0; i < count; i++ {
		availability := make(map[string][]string)
		for day := 1; day <= 7; day++ {
			date := time.Now().AddDate(0, 0, day).Format("2006-01-02")
			var times []string
			for hour := 9; hour < 12; hour++ {
				times = append(times, fmt.Sprintf("%02d:00", hour), fmt.Sprintf("%02d:30", hour))
			}
			availability[date] = times
		}

		_, err := svc.RegisterDoctor(ctx, clinic.RegisterDoctorInput{
			Name:         gofakeit.Name(),
			Age:          gofakeit.Number(28, 70),
			Gender:       gofakeit.Gender(),
			Specialty:    specialties[i%len(specialties)],
			Availability: availability,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func seedPatients(ctx context.Context, svc *clinic.Service, count int) error {
	for i := 0; i < count; i++ {
		_, err := svc.RegisterPatient(ctx, clinic.RegisterPatientInput{
			Name:   gofakeit.Name(),
			Age:    gofakeit.Number(1, 95),
			Gender: gofakeit.Gender(),
		})
		if err != nil {
			return err
		}
	}
	return nil
}
