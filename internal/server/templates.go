package server

import (
	"html/template"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"

	"radar/internal/core"
	"radar/internal/topics"
)

var dashboardTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Culture Radar</title>
<style>
body { font-family: -apple-system, "Segoe UI", sans-serif; margin: 2rem auto; max-width: 70rem; color: #222; }
h1 { font-size: 1.5rem; }
h2 { font-size: 1.15rem; margin-top: 2rem; border-bottom: 1px solid #ddd; padding-bottom: .3rem; }
table { border-collapse: collapse; width: 100%; font-size: .9rem; }
th, td { text-align: left; padding: .35rem .6rem; border-bottom: 1px solid #eee; vertical-align: top; }
th { background: #f7f7f7; }
.count { text-align: right; }
.muted { color: #888; }
form { margin: 1rem 0; font-size: .9rem; }
input, select { margin-right: .6rem; }
</style>
</head>
<body>
<h1>Culture Radar</h1>
<p class="muted">{{.Total}} articles collected · {{len .Topics}} topics</p>

<form method="get" action="/">
<label>From <input type="date" name="from" value="{{.Filter.From}}"></label>
<label>To <input type="date" name="to" value="{{.Filter.To}}"></label>
<label>Source <select name="source">
<option value="">all</option>
{{range .Sources}}<option value="{{.}}" {{if eq . $.SelectedSource}}selected{{end}}>{{.}}</option>{{end}}
</select></label>
<button type="submit">Apply</button>
</form>

<h2>Topics</h2>
<table>
<tr><th>Topic</th><th>Keywords</th><th class="count">Articles</th></tr>
{{range .Topics}}
<tr><td>{{.Label}}</td><td class="muted">{{.Keywords}}</td><td class="count">{{.Count}}</td></tr>
{{end}}
</table>

<h2>Monthly trend</h2>
<table>
<tr><th>Month</th><th class="count">Articles</th></tr>
{{range .Trend}}
<tr><td>{{.Month}}</td><td class="count">{{.Count}}</td></tr>
{{end}}
</table>

<h2>Articles</h2>
<table>
<tr><th>Date</th><th>Title</th><th>Source</th><th>Type</th></tr>
{{range .Articles}}
<tr>
<td class="muted">{{.Date}}</td>
<td><a href="{{.URL}}">{{.Title}}</a></td>
<td>{{.Source}}</td>
<td class="muted">{{.SearchType}}</td>
</tr>
{{end}}
</table>
</body>
</html>`))

type trendRow struct {
	Month string
	Count int
}

type dashboardData struct {
	Total          int
	Filter         struct{ From, To string }
	SelectedSource string
	Sources        []string
	Topics         []topicView
	Trend          []trendRow
	Articles       []articleView
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	f := parseFilter(r)
	if f.Limit == 0 {
		f.Limit = 200
	}

	var data dashboardData
	data.Filter.From = f.From
	data.Filter.To = f.To
	data.SelectedSource = r.URL.Query().Get("source")

	total, err := s.store.Count()
	if err != nil {
		s.serverError(w, "failed to count articles", err)
		return
	}
	data.Total = total

	types, err := s.store.StatusBreakdown("search_type")
	if err != nil {
		s.serverError(w, "failed to query sources", err)
		return
	}
	for st := range types {
		data.Sources = append(data.Sources, displaySearchType(st))
	}
	sort.Strings(data.Sources)

	counts, err := s.store.TopicCounts(f)
	if err != nil {
		s.serverError(w, "failed to query topics", err)
		return
	}
	topicList, _ := topics.LoadTopics(filepath.Join(s.dataDir, topics.TopicsFile))
	labels := make(map[int]core.Topic, len(topicList))
	for _, t := range topicList {
		labels[t.ID] = t
	}
	for id, count := range counts {
		view := topicView{ID: id, Count: count}
		if id == core.TopicOutlier {
			view.Label = "Outliers"
		} else if info, ok := labels[id]; ok {
			view.Label = info.Label
			view.Keywords = joinKeywords(info.Keywords)
		} else {
			view.Label = "Topic " + strconv.Itoa(id)
		}
		data.Topics = append(data.Topics, view)
	}
	sortTopicViews(data.Topics)

	monthly, err := s.store.MonthlyCounts(f)
	if err != nil {
		s.serverError(w, "failed to query trends", err)
		return
	}
	months := make([]string, 0, len(monthly))
	for m := range monthly {
		months = append(months, m)
	}
	sort.Strings(months)
	for _, m := range months {
		data.Trend = append(data.Trend, trendRow{Month: m, Count: monthly[m]})
	}

	articles, err := s.store.QueryArticles(f)
	if err != nil {
		s.serverError(w, "failed to query articles", err)
		return
	}
	for _, a := range articles {
		data.Articles = append(data.Articles, articleView{
			ID:         a.ID,
			Title:      a.Title,
			URL:        a.URL,
			Source:     a.Source,
			Date:       shortDate(a.Date),
			SearchType: displaySearchType(a.SearchType),
			Topic:      a.Topic,
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTemplate.Execute(w, data); err != nil {
		s.serverError(w, "failed to render dashboard", err)
	}
}

func shortDate(date string) string {
	if len(date) >= 10 {
		return date[:10]
	}
	return date
}
