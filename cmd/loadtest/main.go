package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

const transportFailure = "transport"

type loadMode string

const (
	modeDropoff          loadMode = "dropoff"
	modeDropoffPay       loadMode = "dropoff-pay"
	modeDropoffPayPickup loadMode = "dropoff-pay-pickup"
)

const (
	defaultEmployee  = "loadtest"
	defaultItemPrice = "12.50"
)

type config struct {
	baseURL     string
	total       int
	totalSet    bool
	duration    time.Duration
	concurrency int
	timeout     time.Duration
	mode        loadMode
	categories  int
	itemPrice   string
	store       string
	customerTag string
	outputPath  string
}

func parseConfig(args []string) (config, error) {
	fs := flag.NewFlagSet("loadtest", flag.ContinueOnError)

	var cfg config
	var modeValue string
	fs.StringVar(&cfg.baseURL, "url", "http://localhost:8080", "base URL of the POS API")
	fs.IntVar(&cfg.total, "total", 400, "total scenarios to execute in count mode; in duration mode only used when explicitly set")
	fs.DurationVar(&cfg.duration, "duration", 0, "optional time-based run duration (e.g. 10m)")
	fs.IntVar(&cfg.concurrency, "concurrency", 40, "number of concurrent workers")
	fs.DurationVar(&cfg.timeout, "timeout", 5*time.Second, "per-request timeout")
	fs.StringVar(&modeValue, "mode", string(modeDropoff), "load mode: dropoff | dropoff-pay | dropoff-pay-pickup")
	fs.IntVar(&cfg.categories, "categories", 2, "cart categories per dropoff (one sub-order id each)")
	fs.StringVar(&cfg.itemPrice, "item-price", defaultItemPrice, "price of the single item in every category")
	fs.StringVar(&cfg.store, "store", "Main", "store name on every order")
	fs.StringVar(&cfg.customerTag, "customer-tag", "load", "last name prefix of generated customers")
	fs.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "total" {
			cfg.totalSet = true
		}
	})

	mode, err := parseMode(modeValue)
	if err != nil {
		return cfg, err
	}
	cfg.mode = mode
	cfg.baseURL = strings.TrimRight(strings.TrimSpace(cfg.baseURL), "/")

	if cfg.baseURL == "" {
		return cfg, errors.New("url is required")
	}
	if cfg.duration < 0 {
		return cfg, errors.New("duration must be >= 0")
	}
	if cfg.duration == 0 && cfg.total <= 0 {
		return cfg, errors.New("total must be > 0 when duration is not set")
	}
	if cfg.duration > 0 && cfg.totalSet && cfg.total <= 0 {
		return cfg, errors.New("total must be > 0 when explicitly set with duration")
	}
	if cfg.concurrency <= 0 {
		return cfg, errors.New("concurrency must be > 0")
	}
	if cfg.timeout <= 0 {
		return cfg, errors.New("timeout must be > 0")
	}
	if cfg.categories <= 0 {
		return cfg, errors.New("categories must be > 0")
	}
	if price, err := strconv.ParseFloat(cfg.itemPrice, 64); err != nil || price <= 0 {
		return cfg, errors.New("item-price must be a positive number")
	}
	if strings.TrimSpace(cfg.customerTag) == "" {
		return cfg, errors.New("customer-tag is required")
	}

	return cfg, nil
}

func parseMode(value string) (loadMode, error) {
	switch loadMode(strings.TrimSpace(value)) {
	case modeDropoff:
		return modeDropoff, nil
	case modeDropoffPay:
		return modeDropoffPay, nil
	case modeDropoffPayPickup:
		return modeDropoffPayPickup, nil
	default:
		return "", fmt.Errorf("unsupported mode: %s", value)
	}
}

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	result, err := run(cfg, &http.Client{})
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to build report: %v\n", err)
		os.Exit(1)
	}
	printReport(os.Stdout, result, cfg)
	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
			os.Exit(1)
		}
	}

	if result.FailedScenarios > 0 || len(result.DuplicateIDs) > 0 {
		os.Exit(1)
	}
}

// run прогоняет сценарии пулом воркеров. Исход каждого сценария пишется в collector,
// поэтому ошибки воркеров здесь не копятся.
func run(cfg config, client *http.Client) (report, error) {
	startedAt := time.Now()
	runID := fmt.Sprintf("%d-%d", startedAt.UnixNano(), os.Getpid())
	col := newCollector()
	api := &apiClient{http: client, baseURL: cfg.baseURL, timeout: cfg.timeout, col: col}

	jobs := make(chan int, cfg.concurrency)
	var wg sync.WaitGroup
	wg.Add(cfg.concurrency)
	for w := 0; w < cfg.concurrency; w++ {
		go func() {
			defer wg.Done()
			for index := range jobs {
				_ = runScenario(api, cfg, index, runID)
			}
		}()
	}

	feedScenarios(jobs, cfg)
	wg.Wait()

	return col.buildReport(startedAt, time.Since(startedAt))
}

// feedScenarios выдаёт номера сценариев: ровно total в режиме счёта, а с -duration
// до истечения времени (и не больше total, если он задан явно).
func feedScenarios(jobs chan<- int, cfg config) {
	defer close(jobs)

	limit := cfg.total
	var deadline <-chan time.Time
	if cfg.duration > 0 {
		deadline = time.After(cfg.duration)
		if !cfg.totalSet {
			limit = math.MaxInt
		}
	}

	for i := 0; i < limit; i++ {
		select {
		case <-deadline:
			return
		case jobs <- i:
		}
	}
}

type orderResult struct {
	ID         string `json:"id"`
	OrderTotal string `json:"orderTotal"`
	Balance    string `json:"balance"`
	SubOrders  []struct {
		ID uint64 `json:"id"`
	} `json:"subOrders"`
}

func dropoffBody(cfg config, index int, runID string) map[string]any {
	cart := make([]map[string]any, 0, cfg.categories)
	for i := 0; i < cfg.categories; i++ {
		cart = append(cart, map[string]any{
			"type": fmt.Sprintf("Category %d", i+1),
			"items": []map[string]any{
				{"name": "Shirt", "price": json.Number(cfg.itemPrice), "quantity": 1},
			},
		})
	}
	return map[string]any{
		"customer": map[string]any{
			"firstName":   "Load",
			"lastName":    fmt.Sprintf("%s-%s-%d", cfg.customerTag, runID, index),
			"phoneNumber": fmt.Sprintf("555-%07d", index),
		},
		"store":    cfg.store,
		"employee": defaultEmployee,
		"cart":     cart,
	}
}

func runScenario(api *apiClient, cfg config, index int, runID string) error {
	scenarioStart := time.Now()
	scenarioCode := strconv.Itoa(http.StatusOK)
	defer func() {
		api.col.record(stepScenario, time.Since(scenarioStart), scenarioCode)
	}()

	var order orderResult
	code, err := api.call("PlaceOrder", http.MethodPost, "/orders", dropoffBody(cfg, index, runID), &order)
	if err != nil {
		scenarioCode = code
		return err
	}
	if order.ID == "" || len(order.SubOrders) != cfg.categories {
		scenarioCode = "invalid-response"
		return fmt.Errorf("dropoff returned order %q with %d sub-orders", order.ID, len(order.SubOrders))
	}
	ids := make([]uint64, 0, len(order.SubOrders))
	for _, sub := range order.SubOrders {
		ids = append(ids, sub.ID)
	}
	api.col.recordIDs(ids)

	if cfg.mode == modeDropoff {
		return nil
	}

	payment := map[string]any{
		"type":     "Cash",
		"amount":   json.Number(order.Balance),
		"employee": defaultEmployee,
	}
	if code, err := api.call("ApplyPayment", http.MethodPost, "/orders/"+order.ID+"/payments", payment, nil); err != nil {
		scenarioCode = code
		return err
	}

	if cfg.mode == modeDropoffPayPickup {
		body := map[string]any{"employee": defaultEmployee}
		if code, err := api.call("MarkPickedUp", http.MethodPost, "/orders/"+order.ID+"/pickup", body, nil); err != nil {
			scenarioCode = code
			return err
		}
	}
	return nil
}

type apiClient struct {
	http    *http.Client
	baseURL string
	timeout time.Duration
	col     *collector
}

// call отправляет JSON-запрос и записывает задержку под именем method.
// Возвращает код ответа строкой, чтобы сценарий мог сослаться на него в отчёте.
func (a *apiClient) call(method, httpMethod, path string, body, out any) (string, error) {
	start := time.Now()
	code, err := a.do(httpMethod, path, body, out)
	a.col.record(method, time.Since(start), code)
	return code, err
}

func (a *apiClient) do(httpMethod, path string, body, out any) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return transportFailure, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, httpMethod, a.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return transportFailure, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return transportFailure, err
	}
	defer resp.Body.Close()

	code := strconv.Itoa(resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportFailure, err
	}
	if !isSuccess(code) {
		return code, fmt.Errorf("%s %s: status %d: %s", httpMethod, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return "invalid-response", fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return code, nil
}

func isSuccess(code string) bool {
	return len(code) == 3 && code[0] == '2'
}
