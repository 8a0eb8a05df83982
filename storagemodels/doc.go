/*
Package storagemodels defines the catalog records of featureloader and the
parameters used to query them.

DatasetManifest:
Describes one published (data directory, mode) split: its record files and
counts, and a summary of the schema it was read with. Manifests are keyed by a
uuid and indexed by data directory:

	PK  = DATASET#{ID}
	SK  = DATASET#{ID}
	PK1 = DIR#{DataDir}
	SK1 = MODE#{Mode}#{CreatedAt}

Timestamps are go-openapi strfmt date-times stored in their string form.

QueryParams:
Parameters for querying a datastore. ManifestsByDataDir builds the common
"history of a dataset" query:

	params := storagemodels.ManifestsByDataDir("/data/qm9", "train")
	manifests, err := store.Query(ctx, params)
*/
package storagemodels
