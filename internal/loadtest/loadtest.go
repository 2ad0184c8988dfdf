// Package loadtest exercises the mirror store under concurrent access.
//
// The mirror promises that readers keep working while a sync pass
// writes: a reader sees pre- or post-upsert state for any row, never a
// torn one. These utilities populate a realistic mirror, run N
// concurrent readers against it (optionally alongside a writer), and
// report latency percentiles.
package loadtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/calebmorris/prospector/internal/db"
	"github.com/calebmorris/prospector/internal/schema"
)

// TestMirror is a populated mirror store for load testing.
type TestMirror struct {
	DB         *db.DB
	AccountIDs []string
	ContactIDs []string
}

// LatencyStats captures performance metrics from load tests.
type LatencyStats struct {
	Min          time.Duration
	Max          time.Duration
	Mean         time.Duration
	P50          time.Duration
	P95          time.Duration
	P99          time.Duration
	TotalQueries int
	Errors       int
}

// CreateTestMirror populates a mirror at dbPath with numAccounts
// accounts and contactsPerAccount contacts each, with lead scores and
// titles spread to make list queries non-trivial.
func CreateTestMirror(dbPath string, numAccounts, contactsPerAccount int) (*TestMirror, error) {
	database, err := db.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Widen the pool beyond the sync-oriented defaults so reader
	// goroutines are not queueing on connections.
	database.RawDB().SetMaxOpenConns(150)
	database.RawDB().SetMaxIdleConns(50)
	database.RawDB().SetConnMaxLifetime(10 * time.Minute)

	if err := database.InitSchema(); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	tm := &TestMirror{DB: database}
	titles := []string{"VP of Engineering", "Director of Data", "Platform Engineer", "Head of Growth"}

	for i := 0; i < numAccounts; i++ {
		accountID, err := database.UpsertAccount(&schema.Account{
			RemoteID:  fmt.Sprintf("acc_%05d", i),
			Name:      fmt.Sprintf("Account %d", i),
			Domain:    fmt.Sprintf("account-%d.example", i),
			Industry:  []string{"software", "finance", "healthcare"}[i%3],
			LeadScore: float64(i % 100),
		})
		if err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("failed to insert account %d: %w", i, err)
		}
		tm.AccountIDs = append(tm.AccountIDs, accountID)

		for j := 0; j < contactsPerAccount; j++ {
			contactID, err := database.UpsertContact(&schema.Contact{
				RemoteID:       fmt.Sprintf("con_%05d_%03d", i, j),
				AccountLocalID: accountID,
				FullName:       fmt.Sprintf("Contact %d-%d", i, j),
				Email:          fmt.Sprintf("contact-%d-%d@account-%d.example", i, j, i),
				Title:          titles[j%len(titles)],
				LeadScore:      float64((i + j) % 100),
			})
			if err != nil {
				_ = database.Close()
				return nil, fmt.Errorf("failed to insert contact %d-%d: %w", i, j, err)
			}
			tm.ContactIDs = append(tm.ContactIDs, contactID)
		}
	}

	return tm, nil
}

// Close closes the mirror connection.
func (tm *TestMirror) Close() error {
	if tm.DB != nil {
		return tm.DB.Close()
	}
	return nil
}

// RunConcurrentReaders simulates numReaders callers listing high-score
// contacts, queriesPerReader times each, and aggregates latency.
func (tm *TestMirror) RunConcurrentReaders(numReaders, queriesPerReader int) (*LatencyStats, error) {
	var wg sync.WaitGroup
	resultsChan := make(chan []time.Duration, numReaders)
	errorsChan := make(chan error, numReaders)

	for i := 0; i < numReaders; i++ {
		wg.Add(1)
		go func(readerID int) {
			defer wg.Done()

			durations := make([]time.Duration, 0, queriesPerReader)
			ctx := context.Background()

			for j := 0; j < queriesPerReader; j++ {
				start := time.Now()
				_, err := tm.DB.ListContacts(ctx, db.ContactFilter{MinLeadScore: 50, Limit: 25})
				durations = append(durations, time.Since(start))

				if err != nil {
					errorsChan <- fmt.Errorf("reader %d query %d failed: %w", readerID, j, err)
					return
				}
			}
			resultsChan <- durations
		}(i)
	}

	wg.Wait()
	close(resultsChan)
	close(errorsChan)

	errorCount := 0
	for range errorsChan {
		errorCount++
	}

	var allDurations []time.Duration
	for durations := range resultsChan {
		allDurations = append(allDurations, durations...)
	}
	if len(allDurations) == 0 {
		return nil, fmt.Errorf("no successful queries completed")
	}

	stats := computeLatencyStats(allDurations)
	stats.Errors = errorCount
	return stats, nil
}

// VerifyReadersDuringWrites runs readers concurrently with a writer
// re-upserting every contact, and checks each row a reader sees is
// internally consistent. Returns the first inconsistency or error.
func (tm *TestMirror) VerifyReadersDuringWrites(numReaders int, duration time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	errorsChan := make(chan error, numReaders+1)
	var wg sync.WaitGroup

	// Writer: keep re-upserting the same remote ids with shifting
	// scores, like a sync pass would.
	wg.Add(1)
	go func() {
		defer wg.Done()
		round := 0
		for ctx.Err() == nil {
			round++
			for i := range tm.AccountIDs {
				if ctx.Err() != nil {
					return
				}
				_, err := tm.DB.UpsertContactContext(ctx, &schema.Contact{
					RemoteID:       fmt.Sprintf("con_%05d_000", i),
					AccountLocalID: tm.AccountIDs[i],
					FullName:       fmt.Sprintf("Contact %d-0", i),
					Email:          fmt.Sprintf("contact-%d-0@account-%d.example", i, i),
					Title:          "VP of Engineering",
					LeadScore:      float64((i + round) % 100),
				})
				if err != nil && ctx.Err() == nil {
					errorsChan <- fmt.Errorf("writer round %d failed: %w", round, err)
					return
				}
			}
		}
	}()

	for i := 0; i < numReaders; i++ {
		wg.Add(1)
		go func(readerID int) {
			defer wg.Done()

			for ctx.Err() == nil {
				contacts, err := tm.DB.ListContacts(ctx, db.ContactFilter{Limit: 50})
				if err != nil && ctx.Err() == nil {
					errorsChan <- fmt.Errorf("reader %d failed: %w", readerID, err)
					return
				}
				for _, c := range contacts {
					if c.LocalID == "" {
						errorsChan <- fmt.Errorf("reader %d saw a contact without a local id", readerID)
						return
					}
					if c.Email == "" || c.FullName == "" {
						errorsChan <- fmt.Errorf("reader %d saw a torn row: %+v", readerID, c)
						return
					}
				}
				time.Sleep(time.Millisecond)
			}
		}(i)
	}

	wg.Wait()
	close(errorsChan)

	for err := range errorsChan {
		if err != nil {
			return err
		}
	}
	return nil
}

func computeLatencyStats(durations []time.Duration) *LatencyStats {
	if len(durations) == 0 {
		return &LatencyStats{}
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return &LatencyStats{
		Min:          sorted[0],
		Max:          sorted[len(sorted)-1],
		Mean:         sum / time.Duration(len(sorted)),
		P50:          sorted[len(sorted)*50/100],
		P95:          sorted[len(sorted)*95/100],
		P99:          sorted[len(sorted)*99/100],
		TotalQueries: len(sorted),
	}
}

// String formats the statistics for log output.
func (s *LatencyStats) String() string {
	return fmt.Sprintf("queries=%d errors=%d min=%v p50=%v mean=%v p95=%v p99=%v max=%v",
		s.TotalQueries, s.Errors, s.Min, s.P50, s.Mean, s.P95, s.P99, s.Max)
}
