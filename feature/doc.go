/*
Package feature defines the handlers behind the entries of a dataset schema.

A schema entry such as

  - __name__: TensorFeature
    key: x
    shape: [4, 4]
    dtype: float32

is decoded by the factory registered for its kind into a Feature. The Feature
then answers every question the reader has about that field:

	FeatureRead            which record fields to parse and how
	TensorsToItem          how parsed fields become one item
	FeatureWrite           the inverse, used when writing record files
	Stack                  how a list of items becomes one batched item
	PlaceholderAndFeature  the named slots an in-memory feed fills
	FeedDict               how concrete values are bound to those slots

Built-in kinds:
  - TensorFeature: a dense tensor of fixed shape stored as raw bytes
  - GraphFeature: a graph with node, edge and global feature vectors,
    batched by concatenation with shifted sender and receiver indices
  - SparseTensorFeature: a variable-length list batched as a COO tensor

Handlers are immutable once decoded and safe for concurrent use.
*/
package feature
