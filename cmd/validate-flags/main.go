package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/ddeerrrriicckk/CircleFlagsKit/internal/adapters/assets"
	"github.com/ddeerrrriicckk/CircleFlagsKit/internal/codes"
)

// Validates the generated PNG resources before they are embedded. Intended
// for developer/CI usage, not runtime.

type stringList []string

func (l *stringList) String() string {
	return strings.Join(*l, ",")
}

func (l *stringList) Set(value string) error {
	*l = append(*l, value)
	return nil
}

func readAllowlist(path string) (map[string]struct{}, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening allowlist: %w", err)
	}
	defer file.Close()

	allowed := map[string]struct{}{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		allowed[line] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading allowlist: %w", err)
	}

	return allowed, nil
}

func isAlpha2(code string) bool {
	if len(code) != 2 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 'a' || code[i] > 'z' {
			return false
		}
	}
	return true
}

func main() {
	resourcesDir := flag.String("resources", "", "Path to the flag resources directory")
	allowlistPath := flag.String("allowlist", "", "Optional allowlist file, one code per line")
	requireFallback := flag.String("require-fallback", "xx", "Fallback code that must exist, empty to skip")
	var extraAllowed stringList
	flag.Var(&extraAllowed, "allow-extra", "Extra allowed code besides alpha-2, may be repeated")
	flag.Parse()

	if *resourcesDir == "" {
		log.Fatal("No resources directory provided")
	}

	info, err := os.Stat(*resourcesDir)
	if err != nil {
		log.Fatalf("Resources directory does not exist: %s", *resourcesDir)
	}
	if !info.IsDir() {
		log.Fatalf("Resources path is not a directory: %s", *resourcesDir)
	}

	extras := map[string]struct{}{}
	for _, code := range extraAllowed {
		extras[strings.ToLower(strings.TrimSpace(code))] = struct{}{}
	}
	fallback := strings.ToLower(strings.TrimSpace(*requireFallback))
	if fallback != "" {
		extras[fallback] = struct{}{}
	}

	// Validate through the same bundle type the service loads from, so the
	// checks see exactly the keys the runtime will see.
	bundle := assets.NewBundleFromFS(os.DirFS(*resourcesDir))
	keys, err := bundle.Keys()
	if err != nil {
		log.Fatalf("Failed to read resources directory: %s", err)
	}
	if len(keys) == 0 {
		log.Fatalf("No PNG files found in: %s", *resourcesDir)
	}

	errors := []string{}
	warnings := []string{}

	seen := map[string]string{}
	for _, key := range keys {
		normalized := strings.ToLower(strings.TrimSpace(key))

		if _, ok := extras[normalized]; !ok && !isAlpha2(normalized) {
			errors = append(errors, fmt.Sprintf("Invalid filename: %s.png (not ISO alpha-2)", key))
		}

		if previous, ok := seen[normalized]; ok {
			errors = append(errors, fmt.Sprintf("Duplicate code after normalization: %q (%s.png, %s.png)", normalized, previous, key))
		} else {
			seen[normalized] = key
		}

		if key != normalized {
			warnings = append(warnings, fmt.Sprintf("Non-normalized filename: %s.png (should be %s.png)", key, normalized))
		}

		// The runtime lookup path must round-trip every bundled key.
		if resolved := codes.Normalize(key); resolved != normalized && normalized != fallback {
			errors = append(errors, fmt.Sprintf("Filename does not survive key normalization: %s.png (resolves to %q)", key, resolved))
		}
	}

	if fallback != "" && !bundle.Has(fallback) {
		errors = append(errors, fmt.Sprintf("Missing required fallback asset: %s.png", fallback))
	}

	if *allowlistPath != "" {
		required, err := readAllowlist(*allowlistPath)
		if err != nil {
			log.Fatalf("Failed to read allowlist: %s", err)
		}

		missing := []string{}
		for code := range required {
			if !bundle.Has(code) {
				missing = append(missing, code)
			}
		}
		sort.Strings(missing)
		for _, code := range missing {
			errors = append(errors, fmt.Sprintf("Missing PNG for allowlist code: %s", code))
		}

		extra := []string{}
		for code := range seen {
			if _, ok := required[code]; !ok {
				extra = append(extra, code)
			}
		}
		sort.Strings(extra)
		for _, code := range extra {
			warnings = append(warnings, fmt.Sprintf("Extra PNG not listed in allowlist: %s", code))
		}
	}

	for _, warning := range warnings {
		log.Printf("WARNING: %s", warning)
	}

	if len(errors) > 0 {
		for _, err := range errors {
			log.Printf("ERROR: %s", err)
		}
		log.Println("Validation FAILED")
		os.Exit(2)
	}

	fmt.Println("Validation OK")
}
