// Package services implements the HTTP clients for the distribution
// provider's catalog and charts APIs.
//
// [CatalogService] resolves a UPC code to its release metadata.
// [ChartsService] queries editorial playlist placements for a release across
// the supported streaming platforms. Both degrade remote failures to "not
// found" so one flaky upstream never fails a whole batch; only an
// authentication failure propagates as an error.
package services
