// Command datagen writes a labeled sample students CSV for local
// development and demos. Passing students study more and attend more; the
// generated classes are linearly separable enough to train a useful model.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
)

func main() {
	var (
		out      = flag.String("out", "data/students.csv", "Output CSV path")
		students = flag.Int("students", 100, "Number of student rows to generate")
		seed     = flag.Int64("seed", 42, "Random seed")
	)
	flag.Parse()

	fmt.Printf("Generating %d student records...\n", *students)
	fmt.Printf("  Output: %s\n", *out)

	if err := generate(*out, *students, *seed); err != nil {
		log.Fatalf("Failed to generate dataset: %v", err)
	}

	fmt.Printf("✓ Wrote %s\n", *out)
}

func generate(path string, n int, seed int64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	rng := rand.New(rand.NewSource(seed))

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"name", "study_hours", "attendance", "passed"}); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		passing := i%2 == 0

		var hours, attendance float64
		if passing {
			hours = clamp(7+rng.NormFloat64()*2, 0, 40)
			attendance = clamp(85+rng.NormFloat64()*8, 0, 100)
		} else {
			hours = clamp(3+rng.NormFloat64()*1.5, 0, 40)
			attendance = clamp(55+rng.NormFloat64()*12, 0, 100)
		}

		label := "0"
		if passing {
			label = "1"
		}

		row := []string{
			fmt.Sprintf("Student %03d", i+1),
			strconv.FormatFloat(hours, 'f', 1, 64),
			strconv.FormatFloat(attendance, 'f', 1, 64),
			label,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
