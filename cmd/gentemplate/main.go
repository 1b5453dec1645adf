// Command gentemplate generates the Excel import template for sources.
// Usage: go run cmd/gentemplate/main.go
package main

import (
	"log"
	"os"

	"github.com/xuri/excelize/v2"
)

func main() {
	f := excelize.NewFile()

	// Rename Sheet1 to Sources
	if err := f.SetSheetName("Sheet1", "Sources"); err != nil {
		log.Fatal(err)
	}

	// Add headers
	headers := []string{"organization", "name", "url", "source_type", "crawl_frequency_minutes", "active"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			log.Fatal(err)
		}
		if err := f.SetCellValue("Sources", cell, h); err != nil {
			log.Fatal(err)
		}
	}

	// Add example rows
	rows := [][]string{
		{"acme", "Example News", "https://example.com/news", "web", "60", "true"},
		{"acme", "Example Feed", "https://example.com/feed.xml", "rss", "360", "false"},
	}
	for r, row := range rows {
		for i, v := range row {
			cell, err := excelize.CoordinatesToCellName(i+1, r+2)
			if err != nil {
				log.Fatal(err)
			}
			if err := f.SetCellValue("Sources", cell, v); err != nil {
				log.Fatal(err)
			}
		}
	}

	// Create Instructions sheet
	if _, err := f.NewSheet("Instructions"); err != nil {
		log.Fatal(err)
	}
	instructions := []string{
		"Column Descriptions:",
		"",
		"organization - Required. Organization slug the source belongs to",
		"name - Optional. Display name (defaults to the url)",
		"url - Required. Base URL to crawl (must start with http:// or https://)",
		"source_type - Optional. web/rss/twitter_search/api (default: web)",
		"crawl_frequency_minutes - Optional. One of 5, 15, 30, 60, 180, 360, 720, 1440 (default: 60)",
		"active - Optional. true/false/1/0/yes/no (default: false)",
	}
	for i, line := range instructions {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			log.Fatal(err)
		}
		if err := f.SetCellValue("Instructions", cell, line); err != nil {
			log.Fatal(err)
		}
	}

	// Ensure examples directory exists
	if err := os.MkdirAll("examples", 0755); err != nil {
		log.Fatal(err)
	}

	// Save the file
	if err := f.SaveAs("examples/source-import-template.xlsx"); err != nil {
		log.Fatal(err)
	}
	log.Println("Created examples/source-import-template.xlsx")
}
