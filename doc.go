/*
Package featureloader reads machine-learning datasets described by a YAML
feature schema.

A data directory holds a schema and one sub-directory per mode:

	data/
	    config.yaml            # sequence of feature entries
	    data_train/*.tfrecords # serialized tf.Example records
	    data_test/0000.npz     # numbered sample archives

Each schema entry names a feature kind through __name__ and is decoded by the
factory registered for that kind in package registry:

  - __name__: GraphFeature
    key: input_graph
    node_feature_size: 5
    edge_feature_size: 1
    global_feature_size: 1
    dtype: float32
  - __name__: TensorFeature
    key: adj_mat_dense
    shape: [10, 10]
    dtype: float32

Streaming path:

	reader, err := featureloader.New("data", featureloader.WithLogger(logger))
	batches, err := reader.Batches(ctx, "data_train", 32,
	    featureloader.WithBufferSize(256),
	    featureloader.WithPrefetch(64),
	)
	defer batches.Close()
	for {
	    batch, err := batches.Next(ctx)
	    if errors.IsExhausted(err) {
	        break
	    }
	    ...
	}

In-memory path:

	npzReader, err := featureloader.NewNpzReader("data")
	sample, placeholders, err := npzReader.BuildPlaceholders(true)
	feed, err := npzReader.FeedFromFiles("data_test", []int{0, 1, 2}, placeholders, true)

Record framing, shuffling and prefetching live in packages tfrecord and
dataset; the reader only wires the schema to them. Published manifests go to a
datastore.DataStore catalog.
*/
package featureloader
