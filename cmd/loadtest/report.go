package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
)

// printReport печатает сводку прогона и таблицу по шагам; строка scenario идёт последней.
func printReport(w io.Writer, result report, cfg config) {
	_, _ = fmt.Fprintf(w, "Load test: mode=%s run=%s total=%d success=%d failed=%d error_rate=%.4f\n",
		cfg.mode, runTarget(cfg), result.TotalScenarios, result.SuccessScenarios, result.FailedScenarios, result.ErrorRate)
	_, _ = fmt.Fprintf(w, "duration=%.2fs rps=%.2f sub_orders=%d duplicate_ids=%d\n",
		result.DurationSeconds, result.RPS, result.SubOrders, len(result.DuplicateIDs))

	names := make([]string, 0, len(result.Steps))
	for name := range result.Steps {
		if name != stepScenario {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if _, ok := result.Steps[stepScenario]; ok {
		names = append(names, stepScenario)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STEP\tCALLS\tOK\tFAILED\tAVG_MS\tP50_MS\tP95_MS\tP99_MS")
	for _, name := range names {
		s := result.Steps[name]
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%.2f\t%.2f\t%.2f\t%.2f\n",
			name, s.Calls, s.Success, s.Failed, s.LatencyMs.Avg, s.LatencyMs.P50, s.LatencyMs.P95, s.LatencyMs.P99)
	}
	_ = tw.Flush()
}

func runTarget(cfg config) string {
	switch {
	case cfg.duration <= 0:
		return fmt.Sprintf("count:%d", cfg.total)
	case cfg.totalSet:
		return fmt.Sprintf("duration:%s,max-total:%d", cfg.duration, cfg.total)
	default:
		return fmt.Sprintf("duration:%s", cfg.duration)
	}
}

// writeJSONReport пишет отчёт в файл внутри текущего каталога.
func writeJSONReport(path string, result report) error {
	clean := filepath.Clean(path)
	switch {
	case clean == "." || clean == string(filepath.Separator):
		return errors.New("output path must point to a file")
	case clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)):
		return fmt.Errorf("output path must be inside current directory: %s", path)
	}

	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(clean, append(payload, '\n'), 0o600)
}
