package sstack

import(
	"fmt"
	"io/ioutil"
	"log"
	"runtime"

	"gopkg.in/yaml.v2"
)

/* Example config file ...

verbosity: 1
threads: 8

stacking:
  method: winsorized
  sigmalow: 3.0
  sigmahigh: 3.0
  maxiterations: 5

memory:
  maxgib: 16
  bytespersample: 8

output:
  filename: stack.tif
  gammaexpand: false
  previewfilename: preview.png
  previewtonemapper: drago03
  planimagefilename: plan.png

*/

type StackingOptions struct {
	Method        string  // mean, median, sum, min, max, sigma, winsorized, weighted
	SigmaLow      float64 // rejection threshold, in stddevs below the center
	SigmaHigh     float64 // rejection threshold, in stddevs above the center
	MaxIterations int     // cap on sigma-clip refinement rounds
}

type MemoryOptions struct {
	MaxGiB         float64 // budget for resident block buffers across all workers
	BytesPerSample int     // sample size of the working buffers (8 for float64)
}

type OutputOptions struct {
	Filename          string // .png, .tif/.tiff or .hdr
	GammaExpand       bool   // apply sRGB companding to LDR output
	PreviewFilename   string // tonemapped thumbnail, empty to skip
	PreviewTonemapper string
	PlanImageFilename string // block layout debug render, empty to skip
}

type Config struct {
	Verbosity int
	Threads   int
	Stacking  StackingOptions
	Memory    MemoryOptions
	Output    OutputOptions
}

func NewConfig() Config {
	return Config{
		Threads: runtime.NumCPU(),
		Stacking: StackingOptions{
			Method:        "sigma",
			SigmaLow:      3.0,
			SigmaHigh:     3.0,
			MaxIterations: 5,
		},
		Memory: MemoryOptions{
			MaxGiB:         4.0,
			BytesPerSample: 8,
		},
		Output: OutputOptions{
			Filename:          "stack.tif",
			PreviewTonemapper: "linear",
		},
	}
}

func NewConfigFromYamlFile(filename string) (Config, error) {
	c := NewConfig()

	if contents, err := ioutil.ReadFile(filename); err != nil {
		return c, fmt.Errorf("read '%s': %v", filename, err)
	} else if err := yaml.Unmarshal(contents, &c); err != nil {
		return c, fmt.Errorf("parse '%s': %v", filename, err)
	}

	return c, c.FinalizeConfiguration()
}

func (c Config)AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		log.Fatalf("Can't marshal config yaml: %v\n", err)
	}
	return string(b)
}

// FinalizeConfiguration does sanity checks and other post-processing
func (c *Config)FinalizeConfiguration() error {
	if c.Stacking.Method == "" {
		c.Stacking.Method = "sigma"
	}
	switch c.Stacking.Method {
	case "mean", "median", "sum", "min", "max", "sigma", "winsorized", "weighted":
	default:
		return fmt.Errorf("no stacking method named '%s'", c.Stacking.Method)
	}

	if c.Stacking.SigmaLow <= 0 {
		c.Stacking.SigmaLow = 3.0
	}
	if c.Stacking.SigmaHigh <= 0 {
		c.Stacking.SigmaHigh = 3.0
	}
	if c.Stacking.MaxIterations <= 0 {
		c.Stacking.MaxIterations = 5
	}

	if c.Threads <= 0 {
		c.Threads = runtime.NumCPU()
	}
	if c.Memory.MaxGiB <= 0 {
		c.Memory.MaxGiB = 4.0
	}
	switch c.Memory.BytesPerSample {
	case 0:
		c.Memory.BytesPerSample = 8
	case 2, 4, 8:
	default:
		return fmt.Errorf("bytespersample must be 2, 4 or 8, not %d", c.Memory.BytesPerSample)
	}

	if c.Output.Filename == "" {
		c.Output.Filename = "stack.tif"
	}
	if c.Output.PreviewTonemapper == "" {
		c.Output.PreviewTonemapper = "linear"
	}

	return nil
}

// RejectionEnabled says whether the configured method keeps working
// copies of the samples, which the memory budget must leave room for.
func (c Config)RejectionEnabled() bool {
	return c.Stacking.Method == "sigma" || c.Stacking.Method == "winsorized"
}

// GetReducer builds the configured per-pixel reducer. weights are the
// frame set's exposure weights, only used by the weighted method.
func (c Config)GetReducer(weights []float64) PixelReducer {
	switch c.Stacking.Method {
	case "mean":   return ReducerFunc(CombineMean)
	case "median": return ReducerFunc(CombineMedian)
	case "sum":    return ReducerFunc(CombineSum)
	case "min":    return ReducerFunc(CombineMin)
	case "max":    return ReducerFunc(CombineMax)
	case "sigma":
		return SigmaClip{
			KLow:          c.Stacking.SigmaLow,
			KHigh:         c.Stacking.SigmaHigh,
			MaxIterations: c.Stacking.MaxIterations,
		}
	case "winsorized":
		return WinsorizedClip{KLow: c.Stacking.SigmaLow, KHigh: c.Stacking.SigmaHigh}
	case "weighted":
		return WeightedMean{Weights: weights}
	default:
		log.Fatalf("no stacking method named '%s'", c.Stacking.Method)
		return nil
	}
}

// MaxRowsBudget turns the configured byte budget into the planner's
// frame-row unit for a given frame set.
func (c Config)MaxRowsBudget(nbFrames, width int) int64 {
	bytes := int64(c.Memory.MaxGiB * float64(int64(1)<<30))
	return RowBudget(bytes, nbFrames, width, c.Memory.BytesPerSample, c.RejectionEnabled())
}
