package ingest

const template = "Product ID,Compatible Product IDs\n" +
	"product-1,\"product-2,product-3,product-4\"\n" +
	"product-2,\"product-1,product-5\"\n"

// Template returns the sample upload offered to operators.
func Template() []byte {
	return []byte(template)
}
