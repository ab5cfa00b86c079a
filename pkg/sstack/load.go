package sstack

import(
	"fmt"
	"image/color"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/tiff"
)

// A FrameFile is one registered input frame: where it lives, and how
// much weight its exposure earns it in weighted stacks.
type FrameFile struct {
	Filename string
	Weight   float64
}

// A FileFrameSet streams pixel rows out of TIFF files on disk. Frames
// are registered up front (header probe plus EXIF), but pixel data is
// decoded per read and dropped straight after, so resident memory
// stays with the executor's block buffers. TIFF has no partial
// decode, so each read decodes one whole frame and slices out the
// rows it needs.
type FileFrameSet struct {
	Shape  ImageShape
	Frames []FrameFile
}

// LoadFrameSet registers every TIFF under the given files and
// directories, in lexical order within each directory. All frames
// must share the first frame's dimensions and channel count.
func LoadFrameSet(args ...string) (*FileFrameSet, error) {
	fs := FileFrameSet{}
	if err := fs.loadFilesAndDirs(args...); err != nil {
		return nil, err
	}
	if len(fs.Frames) == 0 {
		return nil, fmt.Errorf("no TIFF frames found in %v", args)
	}
	return &fs, nil
}

func (fs *FileFrameSet)loadFilesAndDirs(args ...string) error {
	for _, arg := range args {
		item, err := os.Stat(arg)

		switch {

		case err != nil:
			return fmt.Errorf("load %s: %v", arg, err)

		case item.IsDir():
			// Is a dir, recurse into contents
			contents, err := ioutil.ReadDir(arg)
			if err != nil {
				return fmt.Errorf("readdir %s: %v", arg, err)
			}
			for _, content := range contents {
				if err := fs.loadFilesAndDirs(filepath.Join(arg, content.Name())); err != nil {
					return err
				}
			}

		default: // is a file, register it
			if err := fs.addFile(arg); err != nil {
				return fmt.Errorf("loadfile %s: %v", arg, err)
			}
		}
	}

	return nil
}

func (fs *FileFrameSet)addFile(filename string) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".tif", ".tiff":
	default:
		return nil // not a frame, skip it
	}

	shape, err := probeTIFF(filename)
	if err != nil {
		return err
	}
	if len(fs.Frames) == 0 {
		fs.Shape = shape
	} else if shape != fs.Shape {
		return fmt.Errorf("frame '%s' is %s, frame set is %s", filename, shape, fs.Shape)
	}

	weight, err := exposureWeight(filename)
	if err != nil {
		// Frames without usable EXIF still stack, they just can't be
		// exposure-weighted against the others.
		log.Printf("%s: no usable EXIF, weight=1 (%v)\n", filename, err)
		weight = 1.0
	}

	fs.Frames = append(fs.Frames, FrameFile{Filename: filename, Weight: weight})
	return nil
}

// Implement FrameRowReader
func (fs *FileFrameSet)NumFrames() int { return len(fs.Frames) }

func (fs *FileFrameSet)ReadRows(frame, channel, startRow, endRow int, dst []float64) error {
	if frame < 0 || frame >= len(fs.Frames) {
		return fmt.Errorf("frame %d out of range [0,%d)", frame, len(fs.Frames))
	}
	if err := checkRowRange(fs.Shape, channel, startRow, endRow); err != nil {
		return err
	}

	filename := fs.Frames[frame].Filename
	if reader, err := os.Open(filename); err != nil {
		return fmt.Errorf("open+r img '%s': %v", filename, err)
	} else {
		defer reader.Close()
		img, err := tiff.Decode(reader)
		if err != nil {
			return fmt.Errorf("tiff loading '%s': %v", filename, err)
		}

		min := img.Bounds().Min
		i := 0
		for y := startRow; y <= endRow; y++ {
			for x := 0; x < fs.Shape.Width; x++ {
				r, g, b, _ := img.At(min.X+x, min.Y+y).RGBA() // channel values in range [0, 0xFFFF]
				switch channel {
				case 0: dst[i] = float64(r)
				case 1: dst[i] = float64(g)
				case 2: dst[i] = float64(b)
				}
				i++
			}
		}
	}
	return nil
}

// Weights returns the per-frame exposure weights, frame order.
func (fs *FileFrameSet)Weights() []float64 {
	weights := make([]float64, len(fs.Frames))
	for i, f := range fs.Frames {
		weights[i] = f.Weight
	}
	return weights
}

func probeTIFF(filename string) (ImageShape, error) {
	if reader, err := os.Open(filename); err != nil {
		return ImageShape{}, fmt.Errorf("open+r '%s': %v", filename, err)
	} else {
		defer reader.Close()
		cfg, err := tiff.DecodeConfig(reader)
		if err != nil {
			return ImageShape{}, fmt.Errorf("tiff header '%s': %v", filename, err)
		}
		shape := ImageShape{Width: cfg.Width, Height: cfg.Height, Channels: 3}
		if cfg.ColorModel == color.GrayModel || cfg.ColorModel == color.Gray16Model {
			shape.Channels = 1
		}
		return shape, nil
	}
}

// exposureWeight turns the EXIF exposure triple into a relative frame
// weight: shutter * ISO / fnumber^2, proportional to how much light
// the frame gathered.
func exposureWeight(filename string) (float64, error) {
	reader, err := os.Open(filename)
	if err != nil {
		return 0, fmt.Errorf("open+r exif '%s': %v", filename, err)
	}
	defer reader.Close()

	ex, err := exif.Decode(reader)
	if err != nil {
		return 0, fmt.Errorf("exif parsing '%s': %v", filename, err)
	}

	var iso, apertureX10, ssNum, ssDenom int64

	if tag, err := ex.Get(exif.ISOSpeedRatings); err != nil {
		return 0, fmt.Errorf("exif ISO '%s': %v", filename, err)
	} else if iso, err = tag.Int64(0); err != nil {
		return 0, fmt.Errorf("exif ISO '%s': %v", filename, err)
	}

	if tag, err := ex.Get(exif.FNumber); err != nil {
		return 0, fmt.Errorf("exif FNumber '%s': %v", filename, err)
	} else if num, denom, err := tag.Rat2(0); err != nil {
		return 0, fmt.Errorf("exif FNumber '%s': %v", filename, err)
	} else {
		switch denom {
		case 10: apertureX10 = num
		case  5: apertureX10 = num * 2
		case  1: apertureX10 = num * 10
		default:
			return 0, fmt.Errorf("exif FNumber denom '%s' unhandled '%d/%d'", filename, num, denom)
		}
	}

	if tag, err := ex.Get(exif.ExposureTime); err != nil {
		return 0, fmt.Errorf("exif ExposureTime '%s': %v", filename, err)
	} else if ssNum, ssDenom, err = tag.Rat2(0); err != nil {
		return 0, fmt.Errorf("exif ExposureTime '%s': %v", filename, err)
	}

	if apertureX10 == 0 || ssDenom == 0 {
		return 0, fmt.Errorf("exif exposure in '%s' is degenerate", filename)
	}

	fnumber := float64(apertureX10) / 10.0
	return float64(ssNum) / float64(ssDenom) * float64(iso) / (fnumber * fnumber), nil
}
