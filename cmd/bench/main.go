package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"maps"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/caarlos0/env/v11"
)

type benchConfig struct {
	Endpoint string        `env:"BENCH_ENDPOINT" envDefault:"http://localhost:8080/api/generate"`
	DataDir  string        `env:"BENCH_DATA_DIR" envDefault:"data"`
	Prompt   string        `env:"BENCH_PROMPT" envDefault:"Add a red hat to the main subject."`
	Timeout  time.Duration `env:"BENCH_TIMEOUT" envDefault:"3m"`
}

var formatFiles = []string{"png", "jpg", "jpeg", "webp"}

func main() {
	cfg := benchConfig{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx := context.Background()
	client := &http.Client{Timeout: cfg.Timeout}

	var results []BenchResult
	for _, formatFile := range formatFiles {
		dataPath := filepath.Join(cfg.DataDir, formatFile)

		images, _ := os.ReadDir(dataPath)

		for _, img := range images {
			if img.IsDir() {
				continue
			}
			filePath := filepath.Join(dataPath, img.Name())
			res := benchmarkImage(ctx, client, cfg, filePath)

			if res.Err != nil {
				log.Println("ERR:", res.Err)
			} else {
				log.Printf("%s %s %v images=%d", strings.ToUpper(res.Outcome()), res.File, res.Duration, res.Images)
			}

			results = append(results, res)
		}
	}

	writeMarkdown(os.Stdout, results)
}

func benchmarkImage(ctx context.Context, client *http.Client, cfg benchConfig, filePath string) BenchResult {
	start := time.Now()
	format := strings.TrimPrefix(filepath.Ext(filePath), ".")

	fileRaw, err := os.ReadFile(filePath)
	if err != nil {
		return BenchResult{File: filePath, Format: format, Err: err}
	}

	resp, err := sendGenerate(ctx, client, cfg.Endpoint, cfg.Prompt, filepath.Base(filePath), fileRaw)

	res := BenchResult{
		File:     filepath.Base(filePath),
		Format:   format,
		Duration: time.Since(start),
		Err:      err,
		Size:     int64(len(fileRaw)),
	}
	if resp != nil {
		res.Images = len(resp.Images)
		res.Mock = resp.Mock
		res.Fallback = resp.Fallback
	}
	return res
}

func sendGenerate(ctx context.Context, client *http.Client, endpoint, prompt, fileName string, image []byte) (*GenerateResponse, error) {
	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)

	if err := mw.WriteField("prompt", prompt); err != nil {
		return nil, fmt.Errorf("write prompt: %w", err)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, fileName))
	h.Set("Content-Type", contentType(fileName))
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("create image part: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("write image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.Header.Set("Accept", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var out GenerateResponse
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status %d: %s: %s", resp.StatusCode, out.Error, out.Detail)
	}
	return &out, nil
}

func contentType(fileName string) string {
	if t := mime.TypeByExtension(filepath.Ext(fileName)); t != "" {
		return t
	}
	return "application/octet-stream"
}

func aggregate(results []BenchResult) map[string]*Agg {
	m := map[string]*Agg{}
	for _, r := range results {
		a, ok := m[r.Format]
		if !ok {
			a = newAgg()
			m[r.Format] = a
		}
		a.add(r)
	}
	return m
}

func writeMarkdown(w io.Writer, results []BenchResult) {
	agg := aggregate(results)
	if len(agg) == 0 {
		fmt.Fprintln(w, "no images benchmarked")
		return
	}

	fmt.Fprintln(w, "## Generate benchmark")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "| Format | Requests | OK | Mock | Fallback | Error | Images out | p50 | p95 | Max | Avg input |")
	fmt.Fprintln(w, "|---|---|---|---|---|---|---|---|---|---|---|")

	all := newAgg()
	for _, format := range slices.Sorted(maps.Keys(agg)) {
		writeRow(w, format, agg[format])
		all.merge(agg[format])
	}
	writeRow(w, "**ALL**", all)
}

func writeRow(w io.Writer, label string, a *Agg) {
	cells := []string{label, strconv.Itoa(a.Requests())}
	for _, outcome := range outcomes {
		cells = append(cells, strconv.Itoa(a.Outcomes[outcome]))
	}
	cells = append(cells,
		strconv.Itoa(a.Images),
		a.Percentile(0.50).Round(time.Millisecond).String(),
		a.Percentile(0.95).Round(time.Millisecond).String(),
		a.Percentile(1).Round(time.Millisecond).String(),
		humanBytes(a.AvgInput()),
	)
	fmt.Fprintf(w, "| %s |\n", strings.Join(cells, " | "))
}

func humanBytes(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	value := float64(size)
	suffix := ""
	for _, s := range []string{"KB", "MB", "GB", "TB"} {
		value /= unit
		suffix = s
		if value < unit {
			break
		}
	}
	return fmt.Sprintf("%.2f %s", value, suffix)
}
