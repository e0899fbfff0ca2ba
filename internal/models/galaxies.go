package models

// Galaxies is the fixed category catalogue, ordered for display by full
// name with "other" last.
var Galaxies = []Galaxy{
	{Name: "art", FullName: "Art", Icon: "mdiImageFrame"},
	{Name: "discussion", FullName: "Discussion", Icon: "mdiCommentTextMultiple"},
	{Name: "drugs", FullName: "Drugs", Icon: "mdiPill"},
	{Name: "education", FullName: "Education", Icon: "mdiSchool"},
	{Name: "fashion", FullName: "Fashion", Icon: "mdiTshirtCrew"},
	{Name: "finance", FullName: "Finance & Business", Icon: "mdiCashUsdOutline"},
	{Name: "food", FullName: "Food", Icon: "mdiFood"},
	{Name: "gaming", FullName: "Gaming", Icon: "mdiControllerClassic"},
	{Name: "health", FullName: "Health & Fitness", Icon: "mdiWeightLifter"},
	{Name: "humor", FullName: "Memes & Humor", Icon: "mdiEmoticonExcited"},
	{Name: "entertainment", FullName: "Movies, TV & Entertainment", Icon: "mdiMovie"},
	{Name: "music", FullName: "Music", Icon: "mdiMusic"},
	{Name: "news", FullName: "News & Politics", Icon: "mdiNewspaper"},
	{Name: "outdoors", FullName: "Outdoors & Nature", Icon: "mdiNaturePeople"},
	{Name: "photography", FullName: "Photography", Icon: "mdiCamera"},
	{Name: "places", FullName: "Places", Icon: "mdiCity"},
	{Name: "programming", FullName: "Programming", Icon: "mdiCodeTags"},
	{Name: "science", FullName: "Science", Icon: "mdiMicroscope"},
	{Name: "spirituality", FullName: "Spirituality, Religion & Philosophy", Icon: "mdiBookshelf"},
	{Name: "sports", FullName: "Sports", Icon: "mdiBasketball"},
	{Name: "technology", FullName: "Technology", Icon: "mdiDevices"},
	{Name: "writing", FullName: "Writing", Icon: "mdiFeather"},
	{Name: "other", FullName: "Other", Icon: "mdiHelpCircle"},
}

// IsGalaxy reports whether name is in the catalogue.
func IsGalaxy(name string) bool {
	for _, g := range Galaxies {
		if g.Name == name {
			return true
		}
	}
	return false
}
