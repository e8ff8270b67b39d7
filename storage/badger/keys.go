package badger

const (
	recordPrefix = "song:"
	counterKey   = "meta:edit_count"
)

func makeRecordKey(id string) []byte {
	return []byte(recordPrefix + id)
}
