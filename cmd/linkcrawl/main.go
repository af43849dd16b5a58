// Package main provides the entry point for the linkcrawl CLI.
//
// linkcrawl builds the "links here" graph of a MediaWiki site. Starting from
// seed pages it asks the API which pages link to each known page and stores
// every page and edge it learns about, so an interrupted crawl continues
// where it stopped.
//
// Usage:
//
//	linkcrawl crawl <page-id>...
//	linkcrawl stats --markdown
//
// See --help for all available options.
package main

func main() {
	Execute()
}
