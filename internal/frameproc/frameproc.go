// Package frameproc is a bounded-concurrency helper for frame-level video
// jobs: memoized single-frame decodes, parallel bulk extraction, streaming
// per-frame transforms, and cached metadata lookups. It is independent of
// the conversion pipeline and carries no recognition logic.
package frameproc

import (
	"context"
	"fmt"
	"image"
	"sync"

	"epconvert/internal/ffprobe"
	"epconvert/internal/logging"
)

// progressFrameInterval is how often streaming transforms report progress,
// in frames.
const progressFrameInterval = 10

// FrameFunc transforms one decoded frame. It may mutate and return its
// argument or return a new frame; every returned frame must share one size.
type FrameFunc func(frame *image.NRGBA) *image.NRGBA

// ProgressFunc observes progress as (done, total) counts.
type ProgressFunc func(done, total int)

// FrameSource decodes individual frames out of a video.
type FrameSource interface {
	// FrameAt decodes the frame nearest the given timestamp in seconds.
	FrameAt(ctx context.Context, path string, timestamp float64) (image.Image, error)
	// FrameAtIndex decodes the frame with the given zero-based index.
	FrameAtIndex(ctx context.Context, path string, index int) (image.Image, error)
}

// Transformer streams a whole video through a per-frame function.
type Transformer interface {
	Transform(ctx context.Context, src, dst string, info *ffprobe.MediaInfo, fn FrameFunc, progress ProgressFunc) error
}

// MetadataProber reads stream-level metadata.
type MetadataProber interface {
	Probe(ctx context.Context, path string) (*ffprobe.MediaInfo, error)
}

// frameKey identifies one memoized frame decode.
type frameKey struct {
	path      string
	timestamp float64
}

// IndexedFrame pairs an extracted frame with the index it was requested at.
// Frame is nil and Err set when that single extraction failed.
type IndexedFrame struct {
	Index int
	Frame image.Image
	Err   error
}

// Processor runs frame-level jobs over a fixed-size worker pool. The frame
// memo and the metadata cache are bounded independently; the metadata cache
// is evicted manually, the frame memo only by displacement.
type Processor struct {
	source      FrameSource
	transformer Transformer
	prober      MetadataProber

	sem    *Semaphore
	frames *boundedCache[frameKey, image.Image]
	meta   *boundedCache[string, *ffprobe.MediaInfo]
}

// NewProcessor wires a processor. workers bounds concurrent frame jobs;
// frameEntries and metaEntries bound the two caches separately.
func NewProcessor(source FrameSource, transformer Transformer, prober MetadataProber, workers, frameEntries, metaEntries int) *Processor {
	return &Processor{
		source:      source,
		transformer: transformer,
		prober:      prober,
		sem:         NewSemaphore(workers),
		frames:      newBoundedCache[frameKey, image.Image](frameEntries),
		meta:        newBoundedCache[string, *ffprobe.MediaInfo](metaEntries),
	}
}

// Frame decodes the frame nearest timestamp, memoizing the result by
// path+timestamp. Failed decodes are not memoized.
func (p *Processor) Frame(ctx context.Context, path string, timestamp float64) (image.Image, error) {
	key := frameKey{path: path, timestamp: timestamp}
	if frame, ok := p.frames.get(key); ok {
		return frame, nil
	}

	if err := p.sem.Acquire(ctx); err != nil {
		return nil, err
	}
	defer p.sem.Release()

	frame, err := p.source.FrameAt(ctx, path, timestamp)
	if err != nil {
		return nil, err
	}
	p.frames.put(key, frame)
	return frame, nil
}

// ExtractFrames decodes the frames at the given indices in parallel, bounded
// by the worker pool. Results come back in request order; a failed index
// carries its error instead of aborting the rest.
func (p *Processor) ExtractFrames(ctx context.Context, path string, indices []int) []IndexedFrame {
	results := make([]IndexedFrame, len(indices))

	var wg sync.WaitGroup
	for i, index := range indices {
		if err := p.sem.Acquire(ctx); err != nil {
			results[i] = IndexedFrame{Index: index, Err: err}
			continue
		}
		wg.Add(1)
		go func(slot, index int) {
			defer wg.Done()
			defer p.sem.Release()

			frame, err := p.source.FrameAtIndex(ctx, path, index)
			if err != nil {
				logging.Warn("frame extraction failed", "path", path, "index", index, "error", err)
				results[slot] = IndexedFrame{Index: index, Err: err}
				return
			}
			results[slot] = IndexedFrame{Index: index, Frame: frame}
		}(i, index)
	}
	wg.Wait()

	return results
}

// TransformVideo streams src through fn into dst. Progress is reported
// every ten frames against the probed total.
func (p *Processor) TransformVideo(ctx context.Context, src, dst string, fn FrameFunc, progress ProgressFunc) error {
	info, err := p.Metadata(ctx, src)
	if err != nil {
		return err
	}
	return p.transformer.Transform(ctx, src, dst, info, fn, progress)
}

// ResizeVideo is a streaming transform that scales every frame. It reuses
// TransformVideo with a resampling frame function.
func (p *Processor) ResizeVideo(ctx context.Context, src, dst string, width, height int, progress ProgressFunc) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("resize target %dx%d is not positive", width, height)
	}
	return p.TransformVideo(ctx, src, dst, resizeFrame(width, height), progress)
}

// Metadata reads stream metadata with a bounded cache in front. Entries
// stay until evicted or displaced.
func (p *Processor) Metadata(ctx context.Context, path string) (*ffprobe.MediaInfo, error) {
	if info, ok := p.meta.get(path); ok {
		return info, nil
	}

	info, err := p.prober.Probe(ctx, path)
	if err != nil {
		return nil, err
	}
	p.meta.put(path, info)
	return info, nil
}

// EvictMetadata drops one cached metadata entry, forcing a re-probe on the
// next lookup.
func (p *Processor) EvictMetadata(path string) {
	p.meta.evict(path)
}

// ClearCaches empties both the frame memo and the metadata cache.
func (p *Processor) ClearCaches() {
	p.frames.clear()
	p.meta.clear()
}
