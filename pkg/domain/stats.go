package domain

import "time"

// archiveDay is the day-of-month used when a (year, month) pair is rendered as a date.
// Day 3 keeps the month stable when the date is later shifted into any timezone
// between UTC-12 and UTC+14.
const archiveDay = 3

// MonthBucket is the number of articles published in one calendar month.
type MonthBucket struct {
	Date        time.Time `json:"date"`
	NumArticles int       `json:"num_articles"`
}

// NewMonthBucket builds the bucket for year/month.
func NewMonthBucket(year int, month time.Month, numArticles int) MonthBucket {
	return MonthBucket{
		Date:        time.Date(year, month, archiveDay, 0, 0, 0, 0, time.UTC),
		NumArticles: numArticles,
	}
}

// Year returns the bucket year.
func (b MonthBucket) Year() int { return b.Date.Year() }

// Month returns the bucket month.
func (b MonthBucket) Month() time.Month { return b.Date.Month() }

// AuthorCount is an author annotated with the number of articles they wrote in a namespace.
type AuthorCount struct {
	Author
	NumArticles int `json:"num_articles"`
}

// TagCount is a tag annotated with the number of articles carrying it in a namespace.
type TagCount struct {
	Tag
	NumArticles int `json:"num_articles"`
}
