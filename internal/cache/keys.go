package cache

import "strconv"

// Collection names a cached resource family.
type Collection string

const (
	Inventory Collection = "Inventory"
	Orders    Collection = "Orders"
)

// VersionToken identifies the current generation of a collection's list
// projection. Tokens are opaque and only compared for equality.
type VersionToken string

func (c Collection) VersionKey() string {
	return string(c) + ":List:Version"
}

func (c Collection) ListKey(v VersionToken) string {
	return string(c) + ":List:v=" + string(v)
}

func (c Collection) IDKey(id int64) string {
	return string(c) + ":Id:" + strconv.FormatInt(id, 10)
}
