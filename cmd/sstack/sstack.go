package main

import(
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/gnthibault/siril-sub007/pkg/sstack"
)

var(
	fConfigFilename  string
	fOutputFilename  string
	fMethod          string
	fThreads         int
	fMemGiB          float64
	fSigmaLow        float64
	fSigmaHigh       float64
	fGamma           bool
	fPreviewFilename string
	fTonemapper      string
	fPlanFilename    string
	fDumpConfig      bool
	fVerbosity       int
)

func init() {
	flag.StringVar(&fConfigFilename, "config", "", "yaml config file to start from")
	flag.StringVar(&fOutputFilename, "o", "", "name of output image file (.png, .tif, .hdr)")
	flag.StringVar(&fMethod, "method", "", "how to reduce each pixel: mean, median, sum, min, max, sigma, winsorized, weighted")
	flag.IntVar(&fThreads, "threads", 0, "worker pool size (0: one per CPU)")
	flag.Float64Var(&fMemGiB, "memgb", 0, "memory budget for resident block buffers, GiB")
	flag.Float64Var(&fSigmaLow, "sigmalow", 0, "rejection threshold below center, in stddevs")
	flag.Float64Var(&fSigmaHigh, "sigmahigh", 0, "rejection threshold above center, in stddevs")
	flag.BoolVar(&fGamma, "gamma", false, "apply sRGB standard gamma expansion on final image")
	flag.StringVar(&fPreviewFilename, "preview", "", "also write a tonemapped preview PNG")
	flag.StringVar(&fTonemapper, "tonemapper", "", "preview tonemapper: "+sstack.ListTonemappers())
	flag.StringVar(&fPlanFilename, "planviz", "", "also write a block plan debug render PNG")
	flag.BoolVar(&fDumpConfig, "dumpconfig", false, "print the final config as yaml and exit")
	flag.IntVar(&fVerbosity, "v", 0, "how verbose to get")
	flag.Parse()

	log.Printf("sstack starting\n")
}

func main() {
	cfg := sstack.NewConfig()
	if fConfigFilename != "" {
		var err error
		if cfg, err = sstack.NewConfigFromYamlFile(fConfigFilename); err != nil {
			log.Fatal(err)
		}
	}

	// Override the config file with command line args, if relevant
	if fOutputFilename != ""  { cfg.Output.Filename = fOutputFilename }
	if fMethod != ""          { cfg.Stacking.Method = fMethod }
	if fThreads > 0           { cfg.Threads = fThreads }
	if fMemGiB > 0            { cfg.Memory.MaxGiB = fMemGiB }
	if fSigmaLow > 0          { cfg.Stacking.SigmaLow = fSigmaLow }
	if fSigmaHigh > 0         { cfg.Stacking.SigmaHigh = fSigmaHigh }
	if fPreviewFilename != "" { cfg.Output.PreviewFilename = fPreviewFilename }
	if fTonemapper != ""      { cfg.Output.PreviewTonemapper = fTonemapper }
	if fPlanFilename != ""    { cfg.Output.PlanImageFilename = fPlanFilename }
	if fGamma                 { cfg.Output.GammaExpand = true }
	if fVerbosity > 0         { cfg.Verbosity = fVerbosity }

	if err := cfg.FinalizeConfiguration(); err != nil {
		log.Fatal(err)
	}

	if fDumpConfig {
		log.Printf("Final configuration:-\n\n%s\n", cfg.AsYaml())
		return
	}

	if flag.NArg() == 0 {
		log.Fatalf("usage: sstack [flags] <frame files or dirs>\n")
	}

	fs, err := sstack.LoadFrameSet(flag.Args()...)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Loaded %d frames, each %s\n", fs.NumFrames(), fs.Shape)

	maxRows := cfg.MaxRowsBudget(fs.NumFrames(), fs.Shape.Width)
	plan, err := sstack.Partition(fs.Shape, maxRows, cfg.Threads)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Plan: %s\n", plan)

	if cfg.Output.PlanImageFilename != "" {
		if err := sstack.WritePlanImage(plan, cfg.Output.PlanImageFilename); err != nil {
			log.Fatal(err)
		}
		log.Printf("Plan image written '%s'\n", cfg.Output.PlanImageFilename)
	}

	out := sstack.NewStackImage(fs.Shape)
	out.GammaExpand = cfg.Output.GammaExpand

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var progress sstack.ProgressFunc
	if cfg.Verbosity > 0 {
		progress = func(done, total int) { log.Printf("stacked block %d/%d\n", done, total) }
	}

	report, err := sstack.Run(ctx, plan, fs, cfg.GetReducer(fs.Weights()), out, cfg.Threads, progress)
	if report != nil {
		log.Printf("%s", report.Summary())
	}
	if err != nil {
		log.Fatal(err)
	}

	if cfg.Verbosity > 0 {
		for ch := 0; ch < fs.Shape.Channels; ch++ {
			log.Printf("Channel %d stacked: %s\n", ch, out.Plane(ch).Stats())
		}
	}

	if err := out.WriteToFilename(cfg.Output.Filename); err != nil {
		log.Fatal(err)
	}
	log.Printf("Stacked output file written '%s'\n", cfg.Output.Filename)

	if cfg.Output.PreviewFilename != "" {
		if err := sstack.WritePreview(out, cfg.Output.PreviewFilename, cfg.Output.PreviewTonemapper, 1600); err != nil {
			log.Fatal(err)
		}
		log.Printf("Preview written '%s'\n", cfg.Output.PreviewFilename)
	}
}
