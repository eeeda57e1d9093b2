package model

type NewsItem struct {
	Title     string
	Link      string
	Publisher string
	Time      string
}

type Sentiment struct {
	Score int
	Label string
	Color string
}

type NewsDigest struct {
	News       map[string][]NewsItem
	Sentiments map[string]Sentiment
	Aggregate  Sentiment
}
