// Package internaldefs holds the metric names, help strings, and bucket
// boundaries used by the exporters.
package internaldefs
