// Package trainer wires the store, preprocessing, and model into a full
// training run.
package trainer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"mlforge/internal/config"
	"mlforge/internal/dataset"
	"mlforge/internal/mathx"
	"mlforge/internal/metrics"
	"mlforge/internal/model"
	"mlforge/internal/preprocess"
	"mlforge/internal/storage/sqlite"
)

// Deps carries the trainer's external dependencies.
type Deps struct {
	Store  *sqlite.Store
	Logger *zap.Logger
}

// Result summarizes a completed run.
type Result struct {
	RunID        string
	Epochs       int
	FinalLoss    float64
	ValAccuracy  float64
	TestAccuracy float64
	Confusion    [][]int
}

// Run loads samples from the store, preprocesses them, trains the network,
// evaluates it, and persists the run outcome.
func Run(ctx context.Context, deps Deps, cfg *config.Config) (Result, error) {
	if deps.Store == nil {
		return Result{}, errors.New("trainer: store is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	samples, err := deps.Store.ListSamples(ctx, cfg.Tag)
	if err != nil {
		return Result{}, err
	}
	if len(samples) == 0 {
		return Result{}, fmt.Errorf("trainer: no samples stored under tag %q", cfg.Tag)
	}

	inputs, labels, err := dataset.ToFeatures(samples)
	if err != nil {
		return Result{}, err
	}
	X := rowsToDense(inputs)

	if cfg.OutlierThreshold > 0 {
		kept, mask := preprocess.RemoveOutliers(X, cfg.OutlierThreshold)
		if kept == nil {
			return Result{}, errors.New("trainer: outlier filter removed every sample")
		}
		var keptLabels []int
		for i, ok := range mask {
			if ok {
				keptLabels = append(keptLabels, labels[i])
			}
		}
		dropped := len(labels) - len(keptLabels)
		if dropped > 0 {
			logger.Info("removed outliers",
				zap.Int("dropped", dropped),
				zap.Float64("threshold", cfg.OutlierThreshold))
		}
		X, labels = kept, keptLabels
	}

	split, err := preprocess.TrainTestSplit(X, labels, cfg.TestFrac, cfg.ValFrac, cfg.Seed)
	if err != nil {
		return Result{}, err
	}
	if split.XTrain == nil {
		return Result{}, errors.New("trainer: empty training partition")
	}

	var scaler preprocess.Scaler
	xTrain := scaler.FitTransform(split.XTrain)
	xVal, err := transformOptional(&scaler, split.XVal)
	if err != nil {
		return Result{}, err
	}
	xTest, err := transformOptional(&scaler, split.XTest)
	if err != nil {
		return Result{}, err
	}

	classes := numClasses(labels)
	if classes < 2 {
		return Result{}, fmt.Errorf("trainer: need at least two classes, got %d", classes)
	}
	_, features := xTrain.Dims()
	sizes := append([]int{features}, cfg.HiddenLayers...)
	sizes = append(sizes, classes)

	net, err := model.NewNetwork(sizes, cfg.LearningRate, cfg.Seed)
	if err != nil {
		return Result{}, err
	}

	trainInputs := denseToRows(xTrain)
	logger.Info("starting run",
		zap.Int("samples", len(labels)),
		zap.Int("train", len(split.YTrain)),
		zap.Int("val", len(split.YVal)),
		zap.Int("test", len(split.YTest)),
		zap.Int("features", features),
		zap.Int("classes", classes))

	var window metrics.Window
	finalLoss := 0.0
	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		batches, err := dataset.StartBatcher(ctx, dataset.BatcherOptions{
			Inputs:    trainInputs,
			Labels:    split.YTrain,
			BatchSize: cfg.BatchSize,
			Epochs:    1,
			Seed:      cfg.Seed + int64(epoch),
		})
		if err != nil {
			return Result{}, err
		}

		var batchLosses []float64
		var loadTime, computeTime time.Duration
		startLoad := time.Now()
		for batch := range batches {
			loadTime += time.Since(startLoad)

			startCompute := time.Now()
			batchLosses = append(batchLosses, net.TrainStep(batch))
			computeTime += time.Since(startCompute)

			startLoad = time.Now()
		}
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		epochLoss := mathx.Average(batchLosses)
		finalLoss = epochLoss
		window.Record(len(split.YTrain), loadTime, computeTime, epochLoss)

		if epoch%cfg.LogEvery == 0 {
			snap := window.Snapshot()
			logger.Info("epoch",
				zap.Int("epoch", epoch),
				zap.Float64("loss", snap.LastLoss),
				zap.Float64("samples_per_sec", snap.SamplesPerSec),
				zap.Float64("load_ms", snap.AvgLoadMS),
				zap.Float64("compute_ms", snap.AvgComputeMS))
		}
	}

	result := Result{
		RunID:     uuid.NewString(),
		Epochs:    cfg.Epochs,
		FinalLoss: finalLoss,
	}

	if xVal != nil {
		preds, err := net.PredictMatrix(xVal)
		if err != nil {
			return Result{}, err
		}
		result.ValAccuracy = metrics.Accuracy(split.YVal, preds)
	}
	if xTest != nil {
		preds, err := net.PredictMatrix(xTest)
		if err != nil {
			return Result{}, err
		}
		result.TestAccuracy = metrics.Accuracy(split.YTest, preds)
		result.Confusion, err = metrics.ConfusionMatrix(split.YTest, preds, classes)
		if err != nil {
			return Result{}, err
		}
	}

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return Result{}, fmt.Errorf("encode run config: %w", err)
	}
	run := sqlite.Run{
		ID:           result.RunID,
		StartedAt:    time.Now().UTC(),
		Epochs:       result.Epochs,
		FinalLoss:    result.FinalLoss,
		ValAccuracy:  result.ValAccuracy,
		TestAccuracy: result.TestAccuracy,
		Config:       string(cfgJSON),
	}
	if err := deps.Store.SaveRun(ctx, run); err != nil {
		return Result{}, err
	}

	logger.Info("run complete",
		zap.String("run_id", result.RunID),
		zap.Float64("final_loss", result.FinalLoss),
		zap.Float64("val_accuracy", result.ValAccuracy),
		zap.Float64("test_accuracy", result.TestAccuracy))
	return result, nil
}

func transformOptional(scaler *preprocess.Scaler, X *mat.Dense) (*mat.Dense, error) {
	if X == nil {
		return nil, nil
	}
	return scaler.Transform(X)
}

func numClasses(labels []int) int {
	maxLabel := -1
	for _, label := range labels {
		if label > maxLabel {
			maxLabel = label
		}
	}
	return maxLabel + 1
}

func rowsToDense(rows [][]float64) *mat.Dense {
	out := mat.NewDense(len(rows), len(rows[0]), nil)
	for i, row := range rows {
		out.SetRow(i, row)
	}
	return out
}

func denseToRows(X *mat.Dense) [][]float64 {
	rows, _ := X.Dims()
	out := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = mat.Row(nil, i, X)
	}
	return out
}
