/*
Package dataset is a small pull-based streaming engine in the spirit of tf.data.

A Dataset is a recipe; Iterate starts one pass and returns an Iterator. Stages
compose:

	ds := dataset.TFRecordFiles(files, tfrecord.CompressionNone)
	samples := dataset.Map(ds, parse)
	samples = dataset.Repeat(samples, dataset.RepeatForever)
	samples = dataset.Shuffle(samples, 500, seed)
	samples = dataset.Prefetch(samples, 64)

	it, err := samples.Iterate(ctx)
	if err != nil {
	    return err
	}
	defer it.Close()
	for {
	    s, err := it.Next(ctx)
	    if errors.IsExhausted(err) {
	        break
	    }
	    ...
	}

Iterators are not safe for concurrent use. Prefetch is the only stage that
runs work in the background; it still delivers elements in upstream order.
*/
package dataset
