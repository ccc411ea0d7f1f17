// Load generator for exercising a running Shafaf instance.
//
// Usage:
//   go run cmd/loadgen/main.go -url http://localhost:8080 -rate 50 -duration 30s
//
// This tool:
//   1. Generates synthetic procurement contracts and citizen chat messages
//   2. POSTs them to /fraud-detect and /assistant at a configured rate
//   3. Reports status distribution, risk levels, intents, and latency percentiles
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// ContractRequest matches the fraud-detect payload.
type ContractRequest struct {
	ContractNumber string  `json:"contract_number"`
	Description    string  `json:"description"`
	Amount         float64 `json:"amount"`
	Supplier       string  `json:"supplier"`
	Country        string  `json:"country"`
	AwardDate      string  `json:"award_date,omitempty"`
	DurationMonths int     `json:"duration_months,omitempty"`
	BidCount       int     `json:"bid_count,omitempty"`
}

// AssessmentResponse is the fraud-detect answer.
type AssessmentResponse struct {
	AssessmentID string  `json:"assessment_id"`
	RiskScore    float64 `json:"risk_score"`
	RiskLevel    string  `json:"risk_level"`
}

// ChatRequest matches the assistant payload.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the assistant answer.
type ChatResponse struct {
	Intent   string `json:"intent"`
	Language string `json:"language"`
}

// Metrics tracks load test results.
type Metrics struct {
	TotalSent     int64
	TotalOK       int64
	TotalRejected int64 // 4xx
	TotalFailed   int64 // 5xx or transport error

	ContractsSent int64
	ChatsSent     int64

	mu         sync.Mutex
	latencies  []time.Duration
	riskLevels map[string]int64
	intents    map[string]int64
}

func (m *Metrics) record(latency time.Duration) {
	m.mu.Lock()
	m.latencies = append(m.latencies, latency)
	m.mu.Unlock()
}

func (m *Metrics) countLevel(level string) {
	m.mu.Lock()
	m.riskLevels[level]++
	m.mu.Unlock()
}

func (m *Metrics) countIntent(intent string) {
	m.mu.Lock()
	m.intents[intent]++
	m.mu.Unlock()
}

var suppliers = []string{
	"ABC Construction", "Tech Solutions Inc", "MedEquip Ltd",
	"AquaTech Systems", "BuildCorp", "Khyber Traders", "Indus Engineering",
	"Frontier Supplies", "Crescent Builders", "Unity Contractors",
}

var descriptions = []string{
	"Road resurfacing package", "School furniture supply", "Hospital equipment purchase",
	"Water treatment upgrade", "IT infrastructure refresh", "Street lighting installation",
	"Solid waste collection services", "Bridge maintenance works",
}

var chatMessages = []string{
	"Hello, what services do you offer?",
	"How much is my electricity bill?",
	"check bill for account PWR-100001",
	"verify my cnic 42101-1234567-1",
	"The streetlight on my road is broken",
	"office hours and location please",
	"میرا بل کتنا ہے",
	"السلام علیکم",
	"I need urgent help",
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Shafaf base URL")
	rate := flag.Float64("rate", 50, "Requests per second")
	duration := flag.Duration("duration", 30*time.Second, "Test duration")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	chatShare := flag.Float64("chat-share", 0.3, "Fraction of requests sent to /assistant (0.0-1.0)")
	seed := flag.Int64("seed", 0, "Random seed (0 = time-based)")
	verbose := flag.Bool("verbose", false, "Print each request result")
	flag.Parse()

	if *rate <= 0 || *workers < 1 {
		fmt.Println("Usage: loadgen [-url http://localhost:8080] [-rate 50] [-duration 30s]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║              SHAFAF LOAD GENERATOR                            ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nShafaf URL:  %s\n", *baseURL)
	fmt.Printf("Rate:        %.1f req/s\n", *rate)
	fmt.Printf("Duration:    %v\n", *duration)
	fmt.Printf("Workers:     %d\n", *workers)
	fmt.Printf("Chat Share:  %.2f\n", *chatShare)
	fmt.Println()

	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Shafaf not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure Shafaf is running:")
		fmt.Println("  go run cmd/shafaf/main.go")
		os.Exit(1)
	}
	fmt.Println("✓ Shafaf is healthy")

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	fmt.Printf("\nRunning for %v...\n", *duration)
	startTime := time.Now()
	metrics := runLoad(*baseURL, *rate, *duration, *workers, *chatShare, rngSeed, *verbose)
	elapsed := time.Since(startTime)

	printResults(metrics, elapsed)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// job is one request to send; chat selects the assistant endpoint.
type job struct {
	chat bool
	seq  int64
}

func runLoad(baseURL string, rate float64, duration time.Duration, numWorkers int, chatShare float64, seed int64, verbose bool) *Metrics {
	metrics := &Metrics{
		riskLevels: make(map[string]int64),
		intents:    make(map[string]int64),
	}

	work := make(chan job, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}
			rng := rand.New(rand.NewSource(seed + int64(workerID)))

			for j := range work {
				start := time.Now()
				var err error
				var label string
				if j.chat {
					atomic.AddInt64(&metrics.ChatsSent, 1)
					label, err = sendChat(client, baseURL, rng, metrics)
				} else {
					atomic.AddInt64(&metrics.ContractsSent, 1)
					label, err = sendContract(client, baseURL, rng, j.seq, metrics)
				}
				latency := time.Since(start)

				atomic.AddInt64(&metrics.TotalSent, 1)
				metrics.record(latency)

				if err != nil {
					atomic.AddInt64(&metrics.TotalFailed, 1)
					if verbose {
						fmt.Printf("✗ %v\n", err)
					}
					continue
				}
				if verbose {
					fmt.Printf("✓ %-28s %6.1f ms\n", label, float64(latency.Microseconds())/1000)
				}
			}
		}(i)
	}

	// Feed jobs at the configured rate until the deadline.
	interval := time.Duration(float64(time.Second) / rate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	deadline := time.After(duration)
	feeder := rand.New(rand.NewSource(seed))

	var seq int64
feed:
	for {
		select {
		case <-deadline:
			break feed
		case <-ticker.C:
			seq++
			work <- job{chat: feeder.Float64() < chatShare, seq: seq}
		}
	}
	close(work)

	wg.Wait()
	return metrics
}

func sendContract(client *http.Client, baseURL string, rng *rand.Rand, seq int64, metrics *Metrics) (string, error) {
	// Log-uniform amounts between 100 thousand and roughly 100 million
	// rupees, spanning every risk band.
	amount := 100_000 * float64(int64(1)<<rng.Intn(10)) * (1 + rng.Float64())

	req := ContractRequest{
		ContractNumber: fmt.Sprintf("LOAD-%06d", seq),
		Description:    descriptions[rng.Intn(len(descriptions))],
		Amount:         amount,
		Supplier:       suppliers[rng.Intn(len(suppliers))],
		Country:        "Pakistan",
		DurationMonths: 1 + rng.Intn(36),
		BidCount:       1 + rng.Intn(10),
	}

	body, _ := json.Marshal(req)
	resp, err := client.Post(baseURL+"/fraud-detect", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		atomic.AddInt64(&metrics.TotalOK, 1)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		atomic.AddInt64(&metrics.TotalRejected, 1)
		return fmt.Sprintf("%s rejected", req.ContractNumber), nil
	default:
		return "", fmt.Errorf("%s: status %d", req.ContractNumber, resp.StatusCode)
	}

	var result AssessmentResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	metrics.countLevel(result.RiskLevel)

	return fmt.Sprintf("%s %s", req.ContractNumber, result.RiskLevel), nil
}

func sendChat(client *http.Client, baseURL string, rng *rand.Rand, metrics *Metrics) (string, error) {
	req := ChatRequest{Message: chatMessages[rng.Intn(len(chatMessages))]}

	body, _ := json.Marshal(req)
	resp, err := client.Post(baseURL+"/assistant", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		atomic.AddInt64(&metrics.TotalOK, 1)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		atomic.AddInt64(&metrics.TotalRejected, 1)
		return "chat rejected", nil
	default:
		return "", fmt.Errorf("chat: status %d", resp.StatusCode)
	}

	var result ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	metrics.countIntent(result.Intent)

	return fmt.Sprintf("chat %s/%s", result.Intent, result.Language), nil
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}

func printResults(m *Metrics, elapsed time.Duration) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                     LOAD TEST RESULTS                         ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\nREQUESTS\n")
	fmt.Printf("   Total Sent:       %d\n", m.TotalSent)
	fmt.Printf("   Contracts:        %d\n", m.ContractsSent)
	fmt.Printf("   Chat Messages:    %d\n", m.ChatsSent)
	fmt.Printf("   OK (2xx):         %d\n", m.TotalOK)
	fmt.Printf("   Rejected (4xx):   %d\n", m.TotalRejected)
	fmt.Printf("   Failed:           %d\n", m.TotalFailed)

	if len(m.riskLevels) > 0 {
		fmt.Printf("\nRISK LEVELS\n")
		for _, level := range []string{"LOW", "MEDIUM", "HIGH", "CRITICAL"} {
			if count, ok := m.riskLevels[level]; ok {
				fmt.Printf("   %-9s %d\n", level, count)
			}
		}
	}

	if len(m.intents) > 0 {
		fmt.Printf("\nINTENTS\n")
		intents := make([]string, 0, len(m.intents))
		for intent := range m.intents {
			intents = append(intents, intent)
		}
		sort.Strings(intents)
		for _, intent := range intents {
			fmt.Printf("   %-18s %d\n", intent, m.intents[intent])
		}
	}

	fmt.Printf("\nLATENCY\n")
	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	fmt.Printf("   p50:              %v\n", percentile(sorted, 0.50).Round(time.Microsecond))
	fmt.Printf("   p90:              %v\n", percentile(sorted, 0.90).Round(time.Microsecond))
	fmt.Printf("   p99:              %v\n", percentile(sorted, 0.99).Round(time.Microsecond))

	fmt.Printf("\nTHROUGHPUT\n")
	fmt.Printf("   Duration:         %v\n", elapsed.Round(time.Millisecond))
	if m.TotalSent > 0 {
		fmt.Printf("   Rate:             %.2f req/s\n", float64(m.TotalSent)/elapsed.Seconds())
	}
	fmt.Println()
}
