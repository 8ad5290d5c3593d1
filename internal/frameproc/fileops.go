package frameproc

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"epconvert/internal/errors"
)

// progressChunkInterval is how often chunked file operations report
// progress, in chunks.
const progressChunkInterval = 10

// ByteProgressFunc observes chunked file progress as (done, total) bytes.
type ByteProgressFunc func(done, total uint64)

// ChunkProcessor reads very large files in fixed-size chunks so whole files
// never sit in memory.
type ChunkProcessor struct {
	chunkSize int
}

// NewChunkProcessor creates a processor with the given chunk size in bytes.
func NewChunkProcessor(chunkSize int) *ChunkProcessor {
	if chunkSize < 1 {
		chunkSize = 1 << 20
	}
	return &ChunkProcessor{chunkSize: chunkSize}
}

// Process streams the file through fn chunk by chunk. Progress fires every
// progressChunkInterval chunks and once more at completion.
func (c *ChunkProcessor) Process(path string, fn func(chunk []byte) error, progress ByteProgressFunc) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.NewIOError(fmt.Sprintf("stat %s", path), err)
	}
	total := uint64(info.Size())

	f, err := os.Open(path)
	if err != nil {
		return errors.NewIOError(fmt.Sprintf("open %s", path), err)
	}
	defer f.Close()

	buf := make([]byte, c.chunkSize)
	var done uint64
	chunks := 0
	for {
		n, err := f.Read(buf)
		if n > 0 {
			if err := fn(buf[:n]); err != nil {
				return err
			}
			done += uint64(n)
			chunks++
			if progress != nil && chunks%progressChunkInterval == 0 {
				progress(done, total)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.NewIOError(fmt.Sprintf("read %s", path), err)
		}
	}

	if progress != nil {
		progress(done, total)
	}
	return nil
}

// Copy copies src to dst chunk by chunk, truncating dst first.
func (c *ChunkProcessor) Copy(src, dst string, progress ByteProgressFunc) error {
	out, err := os.Create(dst)
	if err != nil {
		return errors.NewIOError(fmt.Sprintf("create %s", dst), err)
	}

	err = c.Process(src, func(chunk []byte) error {
		if _, werr := out.Write(chunk); werr != nil {
			return errors.NewIOError(fmt.Sprintf("write %s", dst), werr)
		}
		return nil
	}, progress)
	if err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// HashMD5 computes the MD5 digest of a file chunk by chunk and returns it
// hex-encoded.
func (c *ChunkProcessor) HashMD5(path string, progress ByteProgressFunc) (string, error) {
	h := md5.New()
	err := c.Process(path, func(chunk []byte) error {
		h.Write(chunk)
		return nil
	}, progress)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
