// Package dblp wraps the DBLP endpoints the harvester talks to: the SPARQL
// service for per-university faculty queries, the author pages for HTML
// retrieval, and the parsing of downloaded pages into faculty records.
package dblp
