// Package main - agitator
// Load generator for the Kids Mode WebSocket: many concurrent screens
// spamming game actions and measuring reply latency.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/MRamiBalles/ExoplanetDetective/server/internal/domain/mystery"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/domain/reward"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/network"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/platform/logger"
)

// Config for the agitator
type Config struct {
	ServerURL      string
	NumClients     int
	ActionInterval time.Duration
	TestDuration   time.Duration
	ResultsFile    string
}

// Stats tracks performance metrics
type Stats struct {
	MessagesSent     int64
	MessagesReceived int64
	Replies          int64
	RejectedActions  int64
	Errors           int64
	Latencies        []time.Duration
	mu               sync.Mutex
}

func (s *Stats) addLatency(d time.Duration) {
	s.mu.Lock()
	s.Latencies = append(s.Latencies, d)
	s.mu.Unlock()
}

var cfg Config

var rootCmd = &cobra.Command{
	Use:   "agitator",
	Short: "Stress the Kids Mode WebSocket with concurrent screens",
	RunE: func(cmd *cobra.Command, _ []string) error {
		log, err := logger.NewLogger("development")
		if err != nil {
			return err
		}
		defer log.Sync()

		fmt.Println("=========================================")
		fmt.Println("AGITATOR - Kids Mode stress test")
		fmt.Println("=========================================")
		fmt.Printf("Server:   %s\n", cfg.ServerURL)
		fmt.Printf("Clients:  %d\n", cfg.NumClients)
		fmt.Printf("Interval: %v\n", cfg.ActionInterval)
		fmt.Printf("Duration: %v\n", cfg.TestDuration)
		fmt.Println("=========================================")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		ctx, cancel := context.WithTimeout(ctx, cfg.TestDuration)
		defer cancel()

		stats := runStressTest(ctx, cfg, log)
		return printResults(stats, cfg)
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&cfg.ServerURL, "url", "ws://localhost:8080/ws", "WebSocket server URL")
	f.IntVar(&cfg.NumClients, "clients", 50, "number of concurrent clients")
	f.DurationVar(&cfg.ActionInterval, "interval", 150*time.Millisecond, "action interval per client")
	f.DurationVar(&cfg.TestDuration, "duration", 60*time.Second, "test duration")
	f.StringVar(&cfg.ResultsFile, "out", "stress_test_results.json", "results file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runStressTest(ctx context.Context, config Config, log *logger.Logger) *Stats {
	stats := &Stats{Latencies: make([]time.Duration, 0, 10000)}

	var wg sync.WaitGroup
	fmt.Println("\nStarting clients...")
	for i := 0; i < config.NumClients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()
			runClient(ctx, clientID, config, stats, log)
		}(i)

		// Stagger client starts to avoid thundering herd
		time.Sleep(10 * time.Millisecond)
	}
	fmt.Printf("All %d clients started\n\n", config.NumClients)

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Printf("Progress: sent=%d recv=%d replies=%d errors=%d\n",
					atomic.LoadInt64(&stats.MessagesSent),
					atomic.LoadInt64(&stats.MessagesReceived),
					atomic.LoadInt64(&stats.Replies),
					atomic.LoadInt64(&stats.Errors))
			}
		}
	}()

	wg.Wait()
	return stats
}

func runClient(ctx context.Context, clientID int, config Config, stats *Stats, log *logger.Logger) {
	log = log.With("client", clientID)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, nil)
	if err != nil {
		log.Warn("Connection failed", "error", err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	defer conn.Close()

	var pending sync.Map // request id -> send time

	go func() {
		for {
			var msg network.Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			atomic.AddInt64(&stats.MessagesReceived, 1)
			if msg.RequestID == "" {
				continue
			}
			if start, ok := pending.LoadAndDelete(msg.RequestID); ok {
				atomic.AddInt64(&stats.Replies, 1)
				stats.addLatency(time.Since(start.(time.Time)))
			}
			if msg.Type == network.MsgError {
				atomic.AddInt64(&stats.RejectedActions, 1)
			}
		}
	}()

	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	ticker := time.NewTicker(config.ActionInterval)
	defer ticker.Stop()

	for seq := 0; ; seq++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			action := randomAction()
			action.RequestID = strconv.Itoa(clientID) + "-" + strconv.Itoa(seq)
			pending.Store(action.RequestID, time.Now())

			if err := conn.WriteJSON(action); err != nil {
				if ctx.Err() == nil {
					log.Warn("Write failed", "error", err)
					atomic.AddInt64(&stats.Errors, 1)
				}
				return
			}
			atomic.AddInt64(&stats.MessagesSent, 1)
		}
	}
}

// randomAction picks a game action. Many are rejected as invalid transitions
// for the shared session; that path is exercised too.
func randomAction() network.Action {
	raw := func(v interface{}) json.RawMessage {
		b, _ := json.Marshal(v)
		return b
	}
	answers := mystery.Answers
	kinds := reward.Kinds

	switch rand.IntN(8) {
	case 0:
		return network.Action{Type: network.ActionStart}
	case 1:
		return network.Action{Type: network.ActionSelect, Payload: raw(map[string]int{"mystery_id": 1 + rand.IntN(12)})}
	case 2:
		return network.Action{Type: network.ActionGuess, Payload: raw(map[string]string{"guess": string(answers[rand.IntN(len(answers))])})}
	case 3:
		return network.Action{Type: network.ActionNext}
	case 4:
		return network.Action{Type: network.ActionHint}
	case 5:
		return network.Action{Type: network.ActionRedeem, Payload: raw(map[string]string{"kind": string(kinds[rand.IntN(len(kinds))])})}
	case 6:
		return network.Action{Type: network.ActionMenu}
	default:
		return network.Action{Type: network.ActionState}
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	i := int(float64(len(sorted)-1) * p)
	return sorted[i]
}

func printResults(stats *Stats, config Config) error {
	sent := atomic.LoadInt64(&stats.MessagesSent)
	recv := atomic.LoadInt64(&stats.MessagesReceived)
	replies := atomic.LoadInt64(&stats.Replies)
	rejected := atomic.LoadInt64(&stats.RejectedActions)
	errs := atomic.LoadInt64(&stats.Errors)
	throughput := float64(sent) / config.TestDuration.Seconds()

	fmt.Println("\n=========================================")
	fmt.Println("STRESS TEST RESULTS")
	fmt.Println("=========================================")
	fmt.Printf("Messages Sent:     %d\n", sent)
	fmt.Printf("Messages Received: %d\n", recv)
	fmt.Printf("Replies:           %d\n", replies)
	fmt.Printf("Rejected Actions:  %d\n", rejected)
	fmt.Printf("Errors:            %d\n", errs)
	fmt.Printf("Throughput:        %.2f msg/sec\n", throughput)

	stats.mu.Lock()
	lat := slices.Clone(stats.Latencies)
	stats.mu.Unlock()
	slices.Sort(lat)
	if len(lat) > 0 {
		fmt.Printf("\nReply latency:\n")
		fmt.Printf("  p50: %v\n", percentile(lat, 0.50))
		fmt.Printf("  p95: %v\n", percentile(lat, 0.95))
		fmt.Printf("  max: %v\n", lat[len(lat)-1])
	}

	fmt.Println("\n-----------------------------------------")
	switch {
	case errs == 0 && replies >= sent*9/10:
		fmt.Println("TEST PASSED: system handled the load")
	case float64(errs)/float64(sent+1) < 0.05:
		fmt.Println("TEST WARNING: some errors or missing replies")
	default:
		fmt.Println("TEST FAILED: high error rate")
	}
	fmt.Println("=========================================")

	results := map[string]interface{}{
		"messages_sent":      sent,
		"messages_received":  recv,
		"replies":            replies,
		"rejected_actions":   rejected,
		"errors":             errs,
		"throughput_per_sec": throughput,
		"latency_p50_ms":     percentile(lat, 0.50).Milliseconds(),
		"latency_p95_ms":     percentile(lat, 0.95).Milliseconds(),
		"config": map[string]interface{}{
			"clients":  config.NumClients,
			"interval": config.ActionInterval.String(),
			"duration": config.TestDuration.String(),
		},
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(config.ResultsFile, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("\nResults saved to %s\n", config.ResultsFile)
	return nil
}
