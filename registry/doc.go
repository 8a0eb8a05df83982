/*
Package registry holds the process-wide lookup tables of featureloader.

Kind Registry:
Maps schema kind names to the factories that decode them. The built-in kinds
(TensorFeature, GraphFeature, SparseTensorFeature) are registered at init;
new kinds are added without touching the reader:

	registry.RegisterKind("ImageFeature", func(node *yaml.Node) (feature.Feature, error) {
	    return DecodeImageFeature(node)
	})

Looking up an unregistered kind returns an UnknownKindError.

Index Map Registry:
Associates catalog entity types with their DynamoDB key templates:

	registry.RegisterIndexMap[storagemodels.DatasetManifest](map[string]string{
	    "PK":  "DATASET#{ID}",
	    "SK":  "DATASET#{ID}",
	    "PK1": "DIR#{DataDir}",
	    "SK1": "MODE#{Mode}#{CreatedAt}",
	})

Both registries are safe for concurrent use and are normally populated from
init functions. Registering a kind twice panics.
*/
package registry
