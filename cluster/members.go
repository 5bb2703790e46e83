package cluster

// Member is a persisted page that names a cluster as its home.
type Member struct {
	Slug      string
	ClusterID string
	Article   bool
}

// Merge appends live members to the static topology. Static entries keep
// their order and come first; members are appended in the order given and
// slugs already present in the cluster are skipped. Members naming an unknown
// cluster are ignored.
func Merge(clusters []Cluster, members []Member) []Cluster {
	out := make([]Cluster, len(clusters))
	index := make(map[string]int, len(clusters))
	seen := make([]map[string]struct{}, len(clusters))
	for i, c := range clusters {
		out[i] = c.clone()
		index[c.ID] = i
		seen[i] = make(map[string]struct{}, len(c.ToolSlugs)+len(c.ArticleSlugs))
		for _, s := range c.ToolSlugs {
			seen[i]["t:"+s] = struct{}{}
		}
		for _, s := range c.ArticleSlugs {
			seen[i]["a:"+s] = struct{}{}
		}
	}
	for _, m := range members {
		i, ok := index[m.ClusterID]
		if !ok {
			continue
		}
		key := "t:" + m.Slug
		if m.Article {
			key = "a:" + m.Slug
		}
		if _, dup := seen[i][key]; dup {
			continue
		}
		seen[i][key] = struct{}{}
		if m.Article {
			out[i].ArticleSlugs = append(out[i].ArticleSlugs, m.Slug)
		} else {
			out[i].ToolSlugs = append(out[i].ToolSlugs, m.Slug)
		}
	}
	return out
}
