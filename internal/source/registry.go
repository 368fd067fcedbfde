package source

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"

	"pulsefeed/internal/fetchcache"
	"pulsefeed/internal/model"
)

// descriptors is the declarative half of the registry: every source whose
// shape fits the RSS or listing engine is a table entry here. Bespoke
// adapters (Hacker News, Reddit, Product Hunt) are added in All.
var descriptors = []Descriptor{
	// crypto
	{
		Name: "CoinDesk", Category: model.CategoryCrypto, Kind: KindRSS,
		URL:     "https://www.coindesk.com/arc/outboundfeeds/rss/",
		BaseURL: "https://www.coindesk.com",
		Enrich:  true,
	},
	{
		Name: "The Block", Category: model.CategoryCrypto, Kind: KindRSS,
		URL:     "https://www.theblock.co/rss.xml",
		BaseURL: "https://www.theblock.co",
		Enrich:  true,
	},
	{
		Name: "Cointelegraph", Category: model.CategoryCrypto, Kind: KindRSS,
		URL:     "https://cointelegraph.com/rss",
		BaseURL: "https://cointelegraph.com",
	},
	{
		Name: "CryptoPotato", Category: model.CategoryCrypto, Kind: KindRSS,
		URL:     "https://cryptopotato.com/feed/",
		BaseURL: "https://cryptopotato.com",
	},
	{
		Name: "Messari", Category: model.CategoryCrypto, Kind: KindHTML,
		URL:     "https://messari.io/research",
		BaseURL: "https://messari.io",
		Selectors: []string{
			`a[href*="/report/"]`,
			`article a`,
			`[class*="research"] a`,
		},
		PathFilter: "/report/",
		MaxItems:   10,
	},
	{
		Name: "Paradigm", Category: model.CategoryCrypto, Kind: KindHTML,
		URL:     "https://www.paradigm.xyz/writing",
		BaseURL: "https://www.paradigm.xyz",
		Selectors: []string{
			`a[href*="/writing/"]`,
			`article a`,
			`[class*="post"] a`,
		},
		PathFilter: "/writing/",
	},
	{
		Name: "a16z", Category: model.CategoryCrypto, Kind: KindHTML,
		URL:     "https://a16zcrypto.com/posts/",
		BaseURL: "https://a16zcrypto.com",
		Selectors: []string{
			`a[href*="/posts/"]`,
			`article a`,
			`[class*="card"] a`,
		},
		PathFilter: "/posts/",
	},

	// ai
	{
		Name: "TechCrunch", Category: model.CategoryAI, Kind: KindRSS,
		URL:     "https://techcrunch.com/category/artificial-intelligence/feed/",
		BaseURL: "https://techcrunch.com",
	},
	{
		Name: "Wired", Category: model.CategoryAI, Kind: KindRSS,
		URL:     "https://www.wired.com/feed/tag/ai/latest/rss",
		BaseURL: "https://www.wired.com",
	},
	{
		Name: "VentureBeat", Category: model.CategoryAI, Kind: KindRSS,
		URL:     "https://venturebeat.com/category/ai/feed/",
		BaseURL: "https://venturebeat.com",
	},
	{
		Name: "MIT Tech Review", Category: model.CategoryAI, Kind: KindRSS,
		URL:     "https://www.technologyreview.com/feed/",
		BaseURL: "https://www.technologyreview.com",
		Enrich:  true,
	},
	{
		Name: "NVIDIA AI", Category: model.CategoryAI, Kind: KindRSS,
		URL:     "https://blogs.nvidia.com/feed/",
		BaseURL: "https://blogs.nvidia.com",
	},
	{
		Name: "DeepMind", Category: model.CategoryAI, Kind: KindHTML,
		URL:     "https://deepmind.google/discover/blog/",
		BaseURL: "https://deepmind.google",
		Selectors: []string{
			`a[href*="/discover/blog/"]`,
			`article a`,
			`[class*="card"] a`,
		},
		PathFilter: "/discover/blog/",
		Enrich:     true,
	},
	{
		Name: "Hugging Face", Category: model.CategoryAI, Kind: KindHTML,
		URL:     "https://huggingface.co/blog",
		BaseURL: "https://huggingface.co",
		Selectors: []string{
			`a[href*="/blog/"]`,
			`article a`,
			`[class*="card"] a`,
		},
		PathFilter: "/blog/",
	},

	// product
	{
		Name: "Lenny's Newsletter", Category: model.CategoryProduct, Kind: KindRSS,
		URL:     "https://www.lennysnewsletter.com/feed",
		BaseURL: "https://www.lennysnewsletter.com",
	},
	{
		Name: "Roman Pichler", Category: model.CategoryProduct, Kind: KindRSS,
		URL:     "https://www.romanpichler.com/feed/",
		BaseURL: "https://www.romanpichler.com",
	},
	{
		Name: "Intercom", Category: model.CategoryProduct, Kind: KindHTML,
		URL:     "https://www.intercom.com/blog",
		BaseURL: "https://www.intercom.com",
		Selectors: []string{
			`a[href*="/blog/"]`,
			`article a`,
			`[class*="post"] a`,
		},
		PathFilter: "/blog/",
		MaxItems:   10,
	},
	{
		Name: "Product School", Category: model.CategoryProduct, Kind: KindHTML,
		URL:     "https://productschool.com/blog",
		BaseURL: "https://productschool.com",
		Selectors: []string{
			`a[href*="/blog/"]`,
			`article a`,
			`[class*="card"] a`,
		},
		PathFilter: "/blog/",
	},
	{
		Name: "Indie Hackers", Category: model.CategoryProduct, Kind: KindHTML,
		URL:     "https://www.indiehackers.com/",
		BaseURL: "https://www.indiehackers.com",
		Selectors: []string{
			`a[href*="/post/"]`,
			`[class*="story"] a`,
		},
		PathFilter: "/post/",
		MaxItems:   10,
	},
	{
		Name: "First Round", Category: model.CategoryProduct, Kind: KindHTML,
		URL:     "https://review.firstround.com/",
		BaseURL: "https://review.firstround.com",
		Selectors: []string{
			`a[href*="/articles/"]`,
			`article a`,
			`[class*="article"] a`,
		},
		PathFilter: "/articles/",
	},
	{
		Name: "a16z Product", Category: model.CategoryProduct, Kind: KindHTML,
		URL:     "https://a16z.com/articles/",
		BaseURL: "https://a16z.com",
		Selectors: []string{
			`article a`,
			`[class*="post"] a`,
			`[class*="card"] a`,
		},
		PathFilter: "a16z.com/",
	},
}

// bespoke source names and categories, kept next to the descriptor table so
// CategoryOf covers every source the system can emit.
var bespokeCategories = map[string]model.Category{
	"Hacker News":    model.CategoryAI,
	"Reddit":         model.CategoryCrypto,
	"Reddit Product": model.CategoryProduct,
	"Product Hunt":   model.CategoryProduct,
}

var categoryBySource = func() map[string]model.Category {
	m := make(map[string]model.Category, len(descriptors)+len(bespokeCategories))
	for _, d := range descriptors {
		m[d.Name] = d.Category
	}
	for name, cat := range bespokeCategories {
		m[name] = cat
	}
	return m
}()

// Deps carries what adapters need; the cache is injected, never ambient.
type Deps struct {
	Cache   *fetchcache.Cache
	Timeout time.Duration
	Logger  *log.Logger
}

// All builds every adapter in the registry.
func All(deps Deps) []Source {
	enr := newEnricher(deps.Timeout, deps.Logger)

	sources := make([]Source, 0, len(descriptors)+4)
	for _, desc := range descriptors {
		switch desc.Kind {
		case KindRSS:
			sources = append(sources, NewRSSSource(desc, deps.Cache, enr, deps.Logger))
		case KindHTML:
			sources = append(sources, NewHTMLListingSource(desc, deps.Cache, enr, deps.Logger))
		}
	}

	sources = append(sources,
		NewHackerNewsSource(deps.Timeout, deps.Logger),
		NewRedditSource("Reddit", model.CategoryCrypto, "CryptoCurrency", deps.Timeout, deps.Logger),
		NewRedditSource("Reddit Product", model.CategoryProduct, "ProductManagement", deps.Timeout, deps.Logger),
		NewProductHuntSource(deps.Timeout, deps.Logger),
	)

	return sources
}

// ForCategory builds only one category's adapters.
func ForCategory(cat model.Category, deps Deps) []Source {
	return lo.Filter(All(deps), func(s Source, _ int) bool {
		return s.Category() == cat
	})
}

// Names returns the fixed source-name set for a category, for store filters.
func Names(cat model.Category) []string {
	names := make([]string, 0, len(categoryBySource))
	for name, c := range categoryBySource {
		if c == cat {
			names = append(names, name)
		}
	}
	return names
}

// CategoryOf derives an article's category from its source. Unknown sources
// fall back to crypto, matching how the original data was bucketed.
func CategoryOf(sourceName string) model.Category {
	if cat, ok := categoryBySource[sourceName]; ok {
		return cat
	}
	return model.CategoryCrypto
}
