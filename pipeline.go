package psxtim

import (
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bodgit/psxtim/tim"
)

const defaultWorkers = 4

// ExtractOptions control Extract.
type ExtractOptions struct {
	// Format is the image format each record is also rendered as,
	// either "png" or "bmp". Empty writes only the records.
	Format string
	// CLUT selects the palette row, negative uses the whole CLUT.
	CLUT    int
	Workers int
}

type job struct {
	index  int
	record *tim.Record
}

func emitRecords(ctx context.Context, records []*tim.Record) (<-chan job, <-chan error, error) {
	out := make(chan job)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		for i, r := range records {
			select {
			case out <- job{i, r}:
			case <-ctx.Done():
				errc <- errors.New("extraction cancelled")
				return
			}
		}
	}()
	return out, errc, nil
}

func (t *Tool) extractWorker(ctx context.Context, in <-chan job, dir string, o ExtractOptions) (<-chan error, error) {
	encode, err := imageEncoder(o.Format)
	if err != nil {
		return nil, err
	}

	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for j := range in {
			name := filepath.Join(dir, tim.Name(j.index))
			if err := ioutil.WriteFile(name, j.record.Raw, 0644); err != nil {
				errc <- err
				return
			}

			if encode == nil {
				continue
			}

			m, err := j.record.DecodeCLUT(o.CLUT)
			if err != nil {
				// Keep going, the raw record is still useful
				t.logger.Printf("Record %d at offset %#x is undecodable: %v\n", j.index, j.record.Offset, err)
				continue
			}

			if err := writeImage(strings.TrimSuffix(name, filepath.Ext(name))+"."+o.Format, m, encode); err != nil {
				errc <- err
				return
			}
		}
	}()
	return errc, nil
}

func waitForPipeline(errs ...<-chan error) error {
	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil {
			return err
		}
	}
	return nil
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// Extract scans file and writes every record found into dir, named after
// its position. Records are optionally rendered as images alongside. It
// returns the number of records.
func (t *Tool) Extract(file, dir string, o ExtractOptions) (int, error) {
	b, err := t.Load(file)
	if err != nil {
		return 0, err
	}

	records := tim.Scan(b)
	t.logger.Printf("Found %d records in \"%s\"\n", len(records), file)
	if len(records) == 0 {
		return 0, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, err
	}

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	var errcList []<-chan error

	jobs, errc, err := emitRecords(ctx, records)
	if err != nil {
		return 0, err
	}
	errcList = append(errcList, errc)

	workers := o.Workers
	if workers < 1 {
		workers = defaultWorkers
	}
	for i := 0; i < workers; i++ {
		errc, err := t.extractWorker(ctx, jobs, dir, o)
		if err != nil {
			return 0, err
		}
		errcList = append(errcList, errc)
	}

	if err := waitForPipeline(errcList...); err != nil {
		return 0, fmt.Errorf("extract %s: %w", file, err)
	}

	return len(records), nil
}
