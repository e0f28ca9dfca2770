package config

// Constants defining default values for application configuration
const (
	DefaultDBPath      = "./newsdesk.db"
	DefaultDataDir     = "./data"
	DefaultFiltersPath = "./filters.json"
	DefaultFeedsCSV    = "./feeds.csv"

	DefaultSiteURL         = "https://inyourbones.live/"
	DefaultFeedTitle       = "InYourBones Daily Music News"
	DefaultFeedDescription = "Top 5 daily music stories handpicked by InYourBones"

	// All day boundaries are evaluated in this zone; feeds publish in mixed
	// zones and the editorial "day" has to mean one thing everywhere.
	DefaultTimezone = "America/Los_Angeles"

	DefaultMaxResults = 50 // Cap on articles ingested per day
	DefaultTopCount   = 5  // Size of the curated daily selection

	DefaultOpenAIModel = "gpt-3.5-turbo"

	DefaultWorkerCount = 4 // Concurrent feed fetches during scrape

	DefaultServerPort = 8080
	DefaultServerHost = "" // Empty string means all interfaces

	DefaultLogLevel = "debug"

	// Artifact filenames inside the data directory
	LatestArticlesFile = "latest_articles.json"
	TopArticlesFile    = "top_articles.json"
	CaptionedFile      = "top_articles_with_captions.json"
	FeedOutputFile     = "feed.xml"
	FeedAllOutputFile  = "feed_all.xml"
)
