package models

// Region selects the currency and postal-code conventions used by the extractor.
type Region string

const (
	RegionUS Region = "us"
	RegionCA Region = "ca"
)

// Market bundles everything that differs between the two supported markets:
// the city catalog, the storage partition and the extraction region.
type Market struct {
	Region     Region
	CitiesFile string
	Partition  string
}
