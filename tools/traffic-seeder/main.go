// traffic-seeder posts signed vendor-style messages to a running relay at a
// configurable rate. Useful for demos and for exercising the inbound
// pipeline under load.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"github.com/rylie-seo/vendor-relay/internal/guard"
)

var (
	relayURL     = flag.String("relay-url", "http://localhost:8000", "Relay base URL")
	secret       = flag.String("secret", "", "HMAC secret shared with the relay (required)")
	count        = flag.Int("count", 100, "Number of messages to generate")
	interval     = flag.Duration("interval", 100*time.Millisecond, "Interval between messages")
	messageTypes = flag.String("types", "report,publish", "Comma-separated list of message types")
)

func main() {
	flag.Parse()

	if *secret == "" {
		log.Fatal("HMAC secret is required. Use -secret flag")
	}

	gofakeit.Seed(time.Now().UnixNano())

	types := parseTypes(*messageTypes)

	log.Printf("Starting traffic seeder:")
	log.Printf("  Relay URL: %s", *relayURL)
	log.Printf("  Message count: %d", *count)
	log.Printf("  Interval: %v", *interval)
	log.Printf("  Message types: %v", types)

	signer := guard.NewSigner(*secret)
	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	successCount := 0
	failCount := 0

	for i := 0; i < *count; i++ {
		messageType := types[rand.Intn(len(types))]

		var payload map[string]interface{}
		var endpoint string
		switch messageType {
		case "publish":
			payload = generatePublish()
			endpoint = "/vendor/seo/publish"
		default:
			payload = generateReport()
			endpoint = "/vendor/seo/report"
		}

		if err := send(client, signer, endpoint, payload); err != nil {
			log.Printf("Failed to send %s: %v", messageType, err)
			failCount++
		} else {
			successCount++
			if successCount%50 == 0 {
				log.Printf("Progress: %d/%d messages sent", successCount, *count)
			}
		}

		if *interval > 0 && i < *count-1 {
			time.Sleep(*interval)
		}
	}

	log.Printf("Seeding complete:")
	log.Printf("  Success: %d messages", successCount)
	log.Printf("  Failed: %d messages", failCount)
}

func parseTypes(s string) []string {
	out := []string{}
	for _, t := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(t); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		out = []string{"report"}
	}
	return out
}

func generateReport() map[string]interface{} {
	pages := make([]interface{}, 0, 3)
	for j := 0; j < 3; j++ {
		pages = append(pages, map[string]interface{}{
			"page":        "/" + gofakeit.Word(),
			"impressions": gofakeit.Number(100, 50000),
			"clicks":      gofakeit.Number(10, 5000),
			"position":    gofakeit.Float64Range(1, 40),
		})
	}

	return map[string]interface{}{
		"request_id":  uuid.New().String(),
		"report_type": gofakeit.RandomString([]string{"analytics", "keywords", "backlinks"}),
		"title":       gofakeit.Sentence(4),
		"summary":     gofakeit.Paragraph(1, 2, 8, " "),
		"report_url":  gofakeit.URL(),
		"metrics": map[string]interface{}{
			"organic_traffic": gofakeit.Number(1000, 200000),
			"avg_position":    gofakeit.Float64Range(1, 30),
		},
		"details": map[string]interface{}{
			"pages": pages,
		},
	}
}

func generatePublish() map[string]interface{} {
	return map[string]interface{}{
		"request_id":    uuid.New().String(),
		"publish_type":  gofakeit.RandomString([]string{"blog", "landing_page", "gbp_post"}),
		"title":         gofakeit.Sentence(5),
		"description":   gofakeit.Paragraph(1, 2, 10, " "),
		"published_url": gofakeit.URL(),
		"publish_date":  gofakeit.Date().Format("2006-01-02"),
	}
}

func send(client *http.Client, signer *guard.Signer, endpoint string, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	req, err := http.NewRequest(http.MethodPost,
		strings.TrimRight(*relayURL, "/")+endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Vendor-Timestamp", timestamp)
	req.Header.Set("X-Vendor-Signature", signer.Sign(timestamp, body))

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("relay returned status %d", resp.StatusCode)
	}
	return nil
}
