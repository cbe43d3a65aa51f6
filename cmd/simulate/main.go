// Command simulate hammers a running api-server with concurrent bookings for
// the same doctor and slot. Every round opens one fresh slot and races all
// workers for it: exactly one booking must succeed and every other attempt
// must come back as a conflict, which exercises the per-doctor lock and the
// slot exclusivity guarantee under real contention.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type SimConfig struct {
	APIBaseURL string
	Workers    int
	Rounds     int
}

type OperationMetrics struct {
	mu        sync.Mutex
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
}

func (om *OperationMetrics) Record(latency time.Duration, status int) {
	om.mu.Lock()
	defer om.mu.Unlock()

	om.Total++
	switch {
	case status == http.StatusCreated:
		om.Success++
	case status == http.StatusConflict:
		om.Conflict++
	default:
		om.Error++
	}
	om.Latencies = append(om.Latencies, latency)
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)

	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]

	p50Idx := len(latencies) * 50 / 100
	if p50Idx >= len(latencies) {
		p50Idx = len(latencies) - 1
	}
	p50 = latencies[p50Idx]

	p95Idx := len(latencies) * 95 / 100
	if p95Idx >= len(latencies) {
		p95Idx = len(latencies) - 1
	}
	p95 = latencies[p95Idx]

	return avg, min, max, p50, p95
}

type Simulator struct {
	cfg     SimConfig
	client  *http.Client
	log     zerolog.Logger
	metrics OperationMetrics

	doctorID   string
	patientIDs []string
}

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "simulate").Logger()
	logger.Info().Msg("simulator starting")

	cfg := SimConfig{
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8080"),
		Workers:    getInt("SIM_WORKERS", 20),
		Rounds:     getInt("SIM_ROUNDS", 50),
	}

	sim := &Simulator{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    logger,
	}

	if err := sim.setup(); err != nil {
		logger.Fatal().Err(err).Msg("setup failed")
	}

	violations := 0
	for round := 0; round < cfg.Rounds; round++ {
		ok, err := sim.runRound(round)
		if err != nil {
			logger.Fatal().Err(err).Int("round", round).Msg("round failed")
		}
		if !ok {
			violations++
		}
	}

	avg, min, max, p50, p95 := sim.metrics.Stats()
	logger.Info().
		Int64("attempts", sim.metrics.Total).
		Int64("success", sim.metrics.Success).
		Int64("conflict", sim.metrics.Conflict).
		Int64("error", sim.metrics.Error).
		Dur("avg", avg).Dur("min", min).Dur("max", max).Dur("p50", p50).Dur("p95", p95).
		Msg("booking stats")

	if violations > 0 {
		logger.Fatal().Int("violations", violations).Msg("exclusivity violated")
	}
	logger.Info().Msg("all rounds saw exactly one winner")
}

// setup registers one doctor and one patient per worker.
func (s *Simulator) setup() error {
	var doctor struct {
		ID string `json:"id"`
	}
	status, err := s.postJSON("/doctors", map[string]any{
		"name":      "Load Probe",
		"age":       45,
		"gender":    "other",
		"specialty": "General Practice",
	}, &doctor)
	if err != nil {
		return err
	}
	if status != http.StatusCreated {
		return fmt.Errorf("register doctor: unexpected status %d", status)
	}
	s.doctorID = doctor.ID

	for i := 0; i < s.cfg.Workers; i++ {
		var patient struct {
			ID string `json:"id"`
		}
		status, err := s.postJSON("/patients", map[string]any{
			"name":   fmt.Sprintf("Probe Patient %d", i),
			"age":    30,
			"gender": "other",
		}, &patient)
		if err != nil {
			return err
		}
		if status != http.StatusCreated {
			return fmt.Errorf("register patient: unexpected status %d", status)
		}
		s.patientIDs = append(s.patientIDs, patient.ID)
	}

	return nil
}

// runRound opens one slot and races every worker for it. Reports whether
// exactly one booking won.
func (s *Simulator) runRound(round int) (bool, error) {
	date := time.Now().AddDate(0, 0, 1).Format("2006-01-02")
	timeTok := fmt.Sprintf("%02d:%02d", 8+round/60, round%60)

	status, err := s.postJSON("/doctors/"+s.doctorID+"/schedule", map[string]any{
		"date":  date,
		"times": []string{timeTok},
	}, nil)
	if err != nil {
		return false, err
	}
	if status != http.StatusNoContent {
		return false, fmt.Errorf("add availability: unexpected status %d", status)
	}

	var (
		wg      sync.WaitGroup
		winners int64
		mu      sync.Mutex
	)

	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func(patientID string) {
			defer wg.Done()

			start := time.Now()
			status, err := s.postJSON("/appointments", map[string]any{
				"patient_id": patientID,
				"doctor_id":  s.doctorID,
				"date":       date,
				"time":       timeTok,
			}, nil)
			if err != nil {
				s.metrics.Record(time.Since(start), 0)
				return
			}
			s.metrics.Record(time.Since(start), status)

			if status == http.StatusCreated {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(s.patientIDs[i])
	}
	wg.Wait()

	if winners != 1 {
		s.log.Error().
			Int("round", round).
			Int64("winners", winners).
			Str("slot", date+" "+timeTok).
			Msg("expected exactly one winner")
		return false, nil
	}
	return true, nil
}

func (s *Simulator) postJSON(path string, body any, out any) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}

	resp, err := s.client.Post(s.cfg.APIBaseURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}

	return resp.StatusCode, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
