// Package scraper provides the markup sources a pipeline run reads from:
// a saved HTML file, markup passed inline, or a live page rendered in a
// headless browser through chromedp.
package scraper
