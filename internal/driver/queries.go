package driver

const (
	CreateBlobIndexQuery = "CREATE INDEX ON :Blob(key);"

	SaveBlobQuery = `
		MERGE (b:Blob {key: $key})
		SET b.value = $value,
			b.updated_at = $updated_at
		RETURN b.key AS key
	`

	GetBlobQuery = `
		MATCH (b:Blob {key: $key})
		RETURN b.value AS value
		LIMIT 1
	`
)
