package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"pairwatch-go/internal/analytics"
	"pairwatch-go/internal/candle"
	"pairwatch-go/internal/config"
	"pairwatch-go/internal/market"
	"pairwatch-go/internal/store"
)

const defaultConfigPath = "internal/config/config.yaml"

func main() {
	reader := bufio.NewReader(os.Stdin)

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	for {
		fmt.Println("\n=== Pairwatch Control ===")
		fmt.Println("1) Show configuration summary")
		fmt.Println("2) Edit pair and analytics windows")
		fmt.Println("3) Edit tick store")
		fmt.Println("4) Save config")
		fmt.Println("5) Print analytics snapshot")
		fmt.Println("6) Launch pairwatch")
		fmt.Println("7) Reload config from disk")
		fmt.Println("8) Analyze candle CSV files")
		fmt.Println("0) Exit")
		fmt.Print("Select option: ")

		input, _ := reader.ReadString('\n')
		choice := strings.TrimSpace(input)

		switch choice {
		case "1":
			printSummary(cfg)
		case "2":
			editAnalytics(reader, cfg)
		case "3":
			editStore(reader, cfg)
		case "4":
			if err := saveConfig(cfg); err != nil {
				fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			} else {
				fmt.Println("config saved")
			}
		case "5":
			if err := printSnapshot(cfg); err != nil {
				fmt.Fprintf(os.Stderr, "snapshot failed: %v\n", err)
			}
		case "6":
			launch(reader)
		case "7":
			reloaded, err := loadConfig()
			if err != nil {
				fmt.Fprintf(os.Stderr, "reload failed: %v\n", err)
			} else {
				cfg = reloaded
				fmt.Println("config reloaded")
			}
		case "8":
			if err := analyzeCSV(reader, cfg); err != nil {
				fmt.Fprintf(os.Stderr, "csv analysis failed: %v\n", err)
			}
		case "0":
			return
		default:
			fmt.Println("unknown option")
		}
	}
}

func printSummary(cfg *config.Config) {
	fmt.Println("\n--- Configuration Summary ---")
	fmt.Printf("Feed: %s %s\n", cfg.Feed.Provider, cfg.Feed.BaseURL)
	fmt.Println("Pair:", strings.Join(cfg.Feed.Symbols, " / "))
	fmt.Printf("Reconnect backoff: %dms x%.2f up to %dms\n", cfg.Feed.BackoffInitialMs, cfg.Feed.BackoffFactor, cfg.Feed.BackoffMaxMs)
	fmt.Printf("Store: %s", cfg.Store.Backend)
	if cfg.Store.JournalPath != "" {
		fmt.Printf(" (journal %s)", cfg.Store.JournalPath)
	}
	fmt.Println()
	fmt.Printf("Interval: %s | z-score window: %d | correlation window: %d\n", cfg.Analytics.Interval, cfg.Analytics.ZScoreWindow, cfg.Analytics.CorrWindow)
	fmt.Printf("Min regression points: %d | tick limit: %d | refresh: %dms\n", cfg.Analytics.MinPoints, cfg.Analytics.TickLimit, cfg.Analytics.RefreshMs)
	fmt.Println("Known intervals:", strings.Join(candle.Names(), ", "))
}

func editAnalytics(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Pair / Analytics ---")
	fmt.Printf("Current pair: %s\n", strings.Join(cfg.Feed.Symbols, ","))
	fmt.Print("Enter two symbols comma-separated (blank to keep): ")
	if line, _ := reader.ReadString('\n'); strings.TrimSpace(line) != "" {
		var symbols []string
		for _, p := range strings.Split(strings.TrimSpace(line), ",") {
			if trimmed := strings.ToLower(strings.TrimSpace(p)); trimmed != "" {
				symbols = append(symbols, trimmed)
			}
		}
		if len(symbols) == 2 {
			cfg.Feed.Symbols = symbols
		} else {
			fmt.Println("need exactly two symbols, keeping current pair")
		}
	}
	fmt.Printf("Interval [%s]: ", cfg.Analytics.Interval)
	if line, _ := reader.ReadString('\n'); strings.TrimSpace(line) != "" {
		if _, err := candle.GetInterval(line); err != nil {
			fmt.Println(err)
		} else {
			cfg.Analytics.Interval = strings.TrimSpace(line)
		}
	}
	cfg.Analytics.ZScoreWindow = promptInt(reader, "Z-score window", cfg.Analytics.ZScoreWindow)
	cfg.Analytics.CorrWindow = promptInt(reader, "Correlation window", cfg.Analytics.CorrWindow)
	cfg.Analytics.MinPoints = promptInt(reader, "Min regression points", cfg.Analytics.MinPoints)
	cfg.Analytics.TickLimit = promptInt(reader, "Tick limit per leg", cfg.Analytics.TickLimit)
}

func editStore(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Tick Store ---")
	cfg.Store.Backend = promptString(reader, "Backend (memory|postgres|redis)", cfg.Store.Backend)
	switch cfg.Store.Backend {
	case store.BackendPostgres:
		cfg.Store.DSN = promptString(reader, "Postgres DSN", cfg.Store.DSN)
	case store.BackendRedis:
		cfg.Store.RedisAddr = promptString(reader, "Redis address", cfg.Store.RedisAddr)
	}
	cfg.Store.JournalPath = promptString(reader, "Journal path (- to disable)", cfg.Store.JournalPath)
	if cfg.Store.JournalPath == "-" {
		cfg.Store.JournalPath = ""
	}
}

func printSnapshot(cfg *config.Config) error {
	if cfg.Store.Backend == "" || cfg.Store.Backend == store.BackendMemory {
		return fmt.Errorf("memory store is private to the running service; choose postgres or redis")
	}
	symA, symB, err := cfg.Pair()
	if err != nil {
		return err
	}
	params, err := analytics.ParamsFromConfig(cfg.Analytics)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	storeCfg := cfg.Store
	storeCfg.JournalPath = ""
	st, err := store.Open(ctx, storeCfg, zerolog.Nop())
	if err != nil {
		return err
	}
	defer st.Close()

	snap, err := analytics.NewService(st, symA, symB, params, zerolog.Nop()).Snapshot(ctx)
	if err != nil {
		return err
	}
	fmt.Println()
	return snap.WriteSummary(os.Stdout)
}

// analyzeCSV runs the pair analytics over two OHLCV files instead of the tick store.
func analyzeCSV(reader *bufio.Reader, cfg *config.Config) error {
	symA, symB, err := cfg.Pair()
	if err != nil {
		return err
	}
	params, err := analytics.ParamsFromConfig(cfg.Analytics)
	if err != nil {
		return err
	}
	a, err := readCandleFile(promptString(reader, "CSV for "+symA, ""), symA)
	if err != nil {
		return err
	}
	b, err := readCandleFile(promptString(reader, "CSV for "+symB, ""), symB)
	if err != nil {
		return err
	}
	snap := analytics.NewService(nil, symA, symB, params, zerolog.Nop()).SnapshotFromCandles(a, b)
	fmt.Println()
	return snap.WriteSummary(os.Stdout)
}

func readCandleFile(path, symbol string) ([]market.Candle, error) {
	if path == "" {
		return nil, fmt.Errorf("no file given for %s", symbol)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	candles, err := candle.ReadCSV(f, symbol)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return candles, nil
}

func launch(reader *bufio.Reader) {
	fmt.Println("Launching pairwatch (Ctrl+C to stop)...")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := exec.CommandContext(ctx, "go", "run", "./cmd/pairwatch", "-config", locateConfig())
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start pairwatch: %v\n", err)
		return
	}

	go func() {
		_ = cmd.Wait()
		cancel()
	}()

	fmt.Print("\nPress ENTER to stop and return to menu...")
	_, _ = reader.ReadString('\n')
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func promptInt(reader *bufio.Reader, label string, current int) int {
	fmt.Printf("%s [%d]: ", label, current)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	val, err := strconv.Atoi(line)
	if err != nil || val <= 0 {
		fmt.Printf("invalid number, keeping %d\n", current)
		return current
	}
	return val
}

func promptString(reader *bufio.Reader, label, current string) string {
	fmt.Printf("%s [%s]: ", label, current)
	line, _ := reader.ReadString('\n')
	if line = strings.TrimSpace(line); line == "" {
		return current
	}
	return line
}

func loadConfig() (*config.Config, error) {
	return config.Load(locateConfig())
}

func saveConfig(cfg *config.Config) error {
	return config.Save(locateConfig(), cfg)
}

func locateConfig() string {
	if filepath.IsAbs(defaultConfigPath) {
		return defaultConfigPath
	}
	return filepath.Clean(defaultConfigPath)
}
