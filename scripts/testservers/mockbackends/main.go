// Command mockbackends runs throwaway search and conversation backends for
// exercising queryfire locally. The HTTP mode serves /search and /ask; the
// websocket mode answers query frames on any path.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

type serverMode string

const (
	modeHTTP      serverMode = "http"
	modeWebSocket serverMode = "websocket"
)

var (
	latency  = flag.Duration("latency", 10*time.Millisecond, "Simulated backend latency per request")
	failRate = flag.Float64("fail-rate", 0, "Fraction of requests answered with success=false (0..1)")
)

func main() {
	mode := flag.String("mode", "http", "Server mode: http or websocket")
	port := flag.Int("port", 0, "Listening port")
	flag.Parse()

	if *port <= 0 {
		log.Fatalf("port must be > 0")
	}

	switch serverMode(*mode) {
	case modeHTTP:
		log.Fatal(runHTTPServer(*port))
	case modeWebSocket:
		log.Fatal(runWebSocketServer(*port))
	default:
		log.Fatalf("unknown mode %q", *mode)
	}
}

func runHTTPServer(port int) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", handleSearch)
	mux.HandleFunc("/ask", handleAsk)

	addr := fmt.Sprintf(":%d", port)
	log.Printf("mock HTTP backend listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}

func handleSearch(w http.ResponseWriter, r *http.Request) {
	query, ok := readQuery(w, r)
	if !ok {
		return
	}
	simulateLatency()

	if shouldFail() {
		respondJSON(w, map[string]any{
			"success":      false,
			"resultCount":  0,
			"errorMessage": "search index unavailable",
		})
		return
	}
	respondJSON(w, map[string]any{
		"success":     true,
		"resultCount": 1 + len(query)%10,
	})
}

func handleAsk(w http.ResponseWriter, r *http.Request) {
	query, ok := readQuery(w, r)
	if !ok {
		return
	}
	simulateLatency()

	if shouldFail() {
		respondJSON(w, map[string]any{
			"success":      false,
			"errorMessage": "model overloaded",
		})
		return
	}
	respondJSON(w, map[string]any{
		"success": true,
		"answer":  fmt.Sprintf("Here is what I know about %q.", query),
	})
}

func readQuery(w http.ResponseWriter, r *http.Request) (string, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return "", false
	}
	var body struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return "", false
	}
	return body.Query, true
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func runWebSocketServer(port int) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			simulateLatency()

			query := gjson.GetBytes(msg, "query").String()
			var reply map[string]any
			if shouldFail() {
				reply = map[string]any{
					"success":      false,
					"errorMessage": "model overloaded",
				}
			} else {
				reply = map[string]any{
					"success": true,
					"answer":  fmt.Sprintf("Here is what I know about %q.", query),
				}
			}
			payload, err := json.Marshal(reply)
			if err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	})

	addr := fmt.Sprintf(":%d", port)
	log.Printf("mock WebSocket backend listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}

func simulateLatency() {
	if *latency > 0 {
		time.Sleep(*latency)
	}
}

func shouldFail() bool {
	return *failRate > 0 && rand.Float64() < *failRate
}

func respondJSON(w http.ResponseWriter, payload map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}
