package mipmap

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"math"
	"os"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/sync/errgroup"

	"anchorcast/internal/ipfs"
	"anchorcast/internal/services"
)

// Uploader is the content store surface the builder needs.
type Uploader interface {
	Add(ctx context.Context, data []byte) (ipfs.Ref, error)
}

// LevelSpec is one planned pyramid entry.
type LevelSpec struct {
	Index  int
	Width  int
	Height int
}

// Level is one encoded, uploaded pyramid entry.
type Level struct {
	Index  int
	Width  int
	Height int
	Ref    ipfs.Ref
}

// PlanLevels derives the pyramid for a stored image. Orientation values
// above 4 in the standard 8-value enumeration indicate a 90 or 270 degree
// rotation, so logical width and height swap before planning. Level 0 keeps
// the source dimensions; level n halves n times with rounding. Levels keep
// generating while the previous level's width and height are both above 64,
// so the pyramid always ends with the first level at or below 64 on an axis.
func PlanLevels(storedWidth, storedHeight, orientation int) []LevelSpec {
	width, height := storedWidth, storedHeight
	if orientation > 4 {
		width, height = height, width
	}

	levels := []LevelSpec{{Index: 0, Width: width, Height: height}}
	for index := 1; ; index++ {
		scale := math.Pow(2, float64(index))
		outWidth := int(math.Round(float64(width) / scale))
		outHeight := int(math.Round(float64(height) / scale))
		levels = append(levels, LevelSpec{Index: index, Width: outWidth, Height: outHeight})
		if outWidth <= 64 || outHeight <= 64 {
			break
		}
	}
	return levels
}

// ReadOrientation extracts the EXIF orientation quadrant from image bytes.
// Images without usable EXIF report the identity orientation.
func ReadOrientation(data []byte) int {
	meta, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := meta.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	orientation, err := tag.Int(0)
	if err != nil || orientation < 1 || orientation > 8 {
		return 1
	}
	return orientation
}

// Builder encodes and uploads mipmap pyramids.
type Builder struct {
	store   Uploader
	quality int
}

// NewBuilder constructs a Builder uploading through store, encoding levels
// as JPEG at the given quality.
func NewBuilder(store Uploader, quality int) *Builder {
	if quality <= 0 || quality > 100 {
		quality = 85
	}
	return &Builder{store: store, quality: quality}
}

// Build decodes the thumbnail, plans the pyramid, and encodes and uploads
// every level concurrently. The returned slice is in level order regardless
// of upload completion order.
func (b *Builder) Build(ctx context.Context, thumbnailPath string) ([]Level, error) {
	data, err := os.ReadFile(thumbnailPath)
	if err != nil {
		return nil, services.Wrap(services.ErrSource, "mipmap", "read thumbnail", "", err)
	}

	config, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, services.Wrap(services.ErrSource, "mipmap", "decode thumbnail header", "", err)
	}
	orientation := ReadOrientation(data)

	// AutoOrientation applies the EXIF rotation to the pixels so resizes
	// operate on the logical image; the plan swaps dimensions to match.
	source, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, services.Wrap(services.ErrSource, "mipmap", "decode thumbnail", "", err)
	}

	specs := PlanLevels(config.Width, config.Height, orientation)
	levels := make([]Level, len(specs))

	group, groupCtx := errgroup.WithContext(ctx)
	for _, spec := range specs {
		spec := spec
		group.Go(func() error {
			encoded, err := b.encodeLevel(source, spec)
			if err != nil {
				return err
			}
			ref, err := b.store.Add(groupCtx, encoded)
			if err != nil {
				return err
			}
			levels[spec.Index] = Level{Index: spec.Index, Width: spec.Width, Height: spec.Height, Ref: ref}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return levels, nil
}

func (b *Builder) encodeLevel(source image.Image, spec LevelSpec) ([]byte, error) {
	img := source
	if spec.Index > 0 {
		img = imaging.Resize(source, spec.Width, spec.Height, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(b.quality)); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "mipmap", "encode level",
			fmt.Sprintf("level %d", spec.Index), err)
	}
	return buf.Bytes(), nil
}
