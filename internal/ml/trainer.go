package ml

import (
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"student-predictor/internal/common"
	"student-predictor/internal/dataset"
)

// TrainerConfig holds the optimizer configuration. With a fixed learning
// rate, a fixed iteration count and zero-initialized weights, training the
// same records twice yields bit-for-bit identical models.
type TrainerConfig struct {
	LearningRate float64
	Iterations   int
}

// DefaultTrainerConfig returns the optimizer settings used in production.
func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		LearningRate: common.DefaultLearningRate,
		Iterations:   common.DefaultIterations,
	}
}

// Trainer fits binary logistic regression models on two-feature records.
type Trainer struct {
	config TrainerConfig
}

// NewTrainer creates a trainer, falling back to defaults for zero values.
func NewTrainer(config TrainerConfig) *Trainer {
	if config.LearningRate <= 0 {
		config.LearningRate = common.DefaultLearningRate
	}
	if config.Iterations <= 0 {
		config.Iterations = common.DefaultIterations
	}
	return &Trainer{config: config}
}

// Train fits a logistic regression model by batch gradient descent on
// log-loss. Features are z-score normalized and the training-time statistics
// are stored on the model so inference applies the identical transform.
// Accuracy is in-sample: the fraction of training rows the fitted model
// classifies correctly.
func (t *Trainer) Train(records []dataset.TrainingRecord) (*TrainedModel, error) {
	if err := checkClasses(records); err != nil {
		return nil, err
	}

	start := time.Now()
	n := len(records)

	hours := make([]float64, n)
	attendance := make([]float64, n)
	labels := make([]float64, n)
	for i, r := range records {
		hours[i] = r.StudyHours
		attendance[i] = r.Attendance
		if r.Passed {
			labels[i] = 1
		}
	}

	means := []float64{stat.Mean(hours, nil), stat.Mean(attendance, nil)}
	stds := []float64{stat.StdDev(hours, nil), stat.StdDev(attendance, nil)}
	for i := range stds {
		// A constant feature carries no signal; unit scale keeps the
		// normalization finite and its weight converges toward zero.
		if stds[i] == 0 || math.IsNaN(stds[i]) {
			stds[i] = 1
		}
	}

	// Design matrix of normalized features, one row per record.
	x := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		x.Set(i, 0, (hours[i]-means[0])/stds[0])
		x.Set(i, 1, (attendance[i]-means[1])/stds[1])
	}
	y := mat.NewVecDense(n, labels)

	weights := mat.NewVecDense(2, nil) // zero init, deterministic
	bias := 0.0

	z := mat.NewVecDense(n, nil)
	diff := mat.NewVecDense(n, nil)
	grad := mat.NewVecDense(2, nil)

	for iter := 0; iter < t.config.Iterations; iter++ {
		z.MulVec(x, weights)

		biasGrad := 0.0
		for i := 0; i < n; i++ {
			p := sigmoid(z.AtVec(i) + bias)
			d := p - y.AtVec(i)
			diff.SetVec(i, d)
			biasGrad += d
		}

		grad.MulVec(x.T(), diff)
		weights.AddScaledVec(weights, -t.config.LearningRate/float64(n), grad)
		bias -= t.config.LearningRate * biasGrad / float64(n)
	}

	w := []float64{weights.AtVec(0), weights.AtVec(1)}

	correct := 0
	for i := 0; i < n; i++ {
		p := sigmoid(w[0]*x.At(i, 0) + w[1]*x.At(i, 1) + bias)
		if (p >= 0.5) == records[i].Passed {
			correct++
		}
	}
	accuracy := float64(correct) / float64(n)

	model := &TrainedModel{
		Version:      time.Now().UTC().Format("20060102-150405"),
		Weights:      w,
		Bias:         bias,
		FeatureMeans: means,
		FeatureStds:  stds,
		Accuracy:     accuracy,
		FeatureNames: []string{common.FeatureStudyHours, common.FeatureAttendance},
		CreatedAt:    time.Now().UTC(),
	}

	log.Info().
		Str("version", model.Version).
		Float64("accuracy", accuracy).
		Int("rows", n).
		Dur("took", time.Since(start)).
		Msg("model trained")

	return model, nil
}

func checkClasses(records []dataset.TrainingRecord) error {
	var hasPass, hasFail bool
	for _, r := range records {
		if r.Passed {
			hasPass = true
		} else {
			hasFail = true
		}
		if hasPass && hasFail {
			return nil
		}
	}
	return ErrDegenerateDataset
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}
