/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package dataset

import (
	"context"
	"fmt"
	"io"

	"github.com/suparena/featureloader/errors"
	"github.com/suparena/featureloader/tfrecord"
)

// TFRecordFiles streams the raw records of files in order, one file at a time,
// like tf.data.TFRecordDataset. Files are opened lazily; no files yields an
// empty dataset.
func TFRecordFiles(files []string, c tfrecord.Compression) Dataset[[]byte] {
	files = append([]string(nil), files...)
	return Func[[]byte](func(ctx context.Context) (Iterator[[]byte], error) {
		return &recordIterator{files: files, compression: c}, nil
	})
}

type recordIterator struct {
	files       []string
	compression tfrecord.Compression
	next        int
	cur         *tfrecord.Reader
	curPath     string
}

func (it *recordIterator) Next(ctx context.Context) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if it.cur == nil {
			if it.next >= len(it.files) {
				return nil, errors.ErrExhausted
			}
			rd, err := tfrecord.Open(it.files[it.next], it.compression)
			if err != nil {
				return nil, err
			}
			it.cur, it.curPath = rd, it.files[it.next]
			it.next++
		}

		rec, err := it.cur.Next()
		if err == nil {
			return rec, nil
		}
		if err != io.EOF {
			return nil, fmt.Errorf("%s: %w", it.curPath, err)
		}
		if err := it.cur.Close(); err != nil {
			return nil, err
		}
		it.cur = nil
	}
}

func (it *recordIterator) Close() error {
	if it.cur == nil {
		return nil
	}
	err := it.cur.Close()
	it.cur = nil
	return err
}
