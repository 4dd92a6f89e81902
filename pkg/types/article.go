package types

import "time"

// Article represents a content record published from a mail message
type Article struct {
	ID        int64     `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Alias     string    `json:"alias" db:"alias"`
	IntroText string    `json:"introtext" db:"introtext"`
	FullText  string    `json:"fulltext" db:"fulltext"`
	CatID     int       `json:"catid" db:"catid"`
	CreatedBy int       `json:"created_by" db:"created_by"`
	Created   time.Time `json:"created" db:"-"`
	PublishUp time.Time `json:"publish_up" db:"-"`
	State     int       `json:"state" db:"state"`
	Language  string    `json:"language" db:"language"`
	Access    int       `json:"access" db:"access"`
	Images    string    `json:"images" db:"images"`
	URLs      string    `json:"urls" db:"urls"`
	Attribs   string    `json:"attribs" db:"attribs"`
	MetaKey   string    `json:"metakey" db:"metakey"`
	MetaDesc  string    `json:"metadesc" db:"metadesc"`
	Metadata  string    `json:"metadata" db:"metadata"`
	Version   int       `json:"version" db:"version"`
	Featured  int       `json:"featured" db:"featured"`
}

// ArticleSummary represents a summary of an article (for search results)
type ArticleSummary struct {
	ID      int64     `json:"id"`
	Title   string    `json:"title"`
	Alias   string    `json:"alias"`
	CatID   int       `json:"catid"`
	Created time.Time `json:"created"`
	Snippet string    `json:"snippet"`
}

// Images is the image reference payload stored with an article
type Images struct {
	ImageIntro           string `json:"image_intro"`
	ImageIntroAlt        string `json:"image_intro_alt"`
	FloatIntro           string `json:"float_intro"`
	ImageIntroCaption    string `json:"image_intro_caption"`
	ImageFulltext        string `json:"image_fulltext"`
	ImageFulltextAlt     string `json:"image_fulltext_alt"`
	FloatFulltext        string `json:"float_fulltext"`
	ImageFulltextCaption string `json:"image_fulltext_caption"`
}

// Orphan is an article that lacks one or more derived rows
type Orphan struct {
	ID                  int64  `json:"id" db:"id"`
	Title               string `json:"title" db:"title"`
	MissingUCMContent   bool   `json:"missing_ucm_content" db:"missing_ucm_content"`
	MissingUCMBase      bool   `json:"missing_ucm_base" db:"missing_ucm_base"`
	MissingWorkflowLink bool   `json:"missing_workflow_link" db:"missing_workflow_link"`
}
