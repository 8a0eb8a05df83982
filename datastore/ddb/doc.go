/*
Package ddb provides a DynamoDB implementation of the DataStore interface.

The store follows a single-table design. Each entity type registers an index
map whose templates are expanded from the entity's attributes on Put:

	registry.RegisterIndexMap[storagemodels.DatasetManifest](map[string]string{
	    "PK":  "DATASET#{ID}",        // Becomes "DATASET#5f0c..."
	    "SK":  "DATASET#{ID}",
	    "PK1": "DIR#{DataDir}",       // GSI1 partition key
	    "SK1": "MODE#{Mode}#{CreatedAt}",
	})

GetOne and Delete take the bare key ("5f0c...") and expand it into PK and SK.
Query follows pagination until the result is complete.

NewWithClient accepts any API implementation, which is how tests run the store
without AWS.
*/
package ddb
