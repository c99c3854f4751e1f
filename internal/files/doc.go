// Package files discovers category workbooks on disk.
//
// When no category file map is available, every workbook of the data
// directory becomes a category named after its file:
//
//	discovery := files.NewDiscovery(paths.DataDir, logger)
//	fileMap, err := discovery.DiscoverFileMap(".")
//	// {"KR_BIO": "KR_BIO.xlsx", "US_TECH": "US_TECH.xlsx"}
package files
