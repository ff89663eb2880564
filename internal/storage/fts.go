package storage

import "fmt"

// SearchFTS returns candidate nodes whose content matches an FTS5 MATCH
// query against nodes_fts, ranked by bm25, bounded by limit. It is
// candidate generation only: the keyword retrieval strategy re-scores
// every returned node with its own stopword-filtered overlap ratio
// rather than trusting bm25 as the final score (spec §4.6 keeps the
// general full-text-search feature itself out of scope).
func (s *Store) SearchFTS(userID, query string, limit int) ([]*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.requireReady(); err != nil {
		return nil, err
	}
	if query == "" {
		return nil, nil
	}

	rows, err := s.db.Query(`
		SELECT `+nodeColumnsPrefixed("n")+`
		FROM nodes_fts f
		JOIN nodes n ON n.id = f.id
		WHERE nodes_fts MATCH ? AND f.user_id = ?
		ORDER BY bm25(nodes_fts)
		LIMIT ?
	`, ftsQuery(query), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("search fts: %w", err)
	}
	defer rows.Close()

	var out []*Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fts node: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// ftsQuery escapes a free-text query into an FTS5 MATCH expression: each
// token is double-quoted so punctuation in user text never trips the
// query-syntax parser.
func ftsQuery(q string) string {
	out := ""
	word := ""
	flush := func() {
		if word != "" {
			if out != "" {
				out += " "
			}
			out += `"` + word + `"`
			word = ""
		}
	}
	for _, r := range q {
		if r == ' ' || r == '\t' || r == '\n' {
			flush()
			continue
		}
		if r == '"' {
			continue
		}
		word += string(r)
	}
	flush()
	if out == "" {
		return `""`
	}
	return out
}

func nodeColumnsPrefixed(alias string) string {
	return alias + ".id, " + alias + ".content, " + alias + ".type, " + alias + ".layer, " +
		alias + ".created_at, " + alias + ".updated_at, " + alias + ".conversation_date, " +
		alias + ".event_date, " + alias + ".importance, " + alias + ".confidence, " +
		alias + ".is_latest, " + alias + ".is_static, " + alias + ".superseded_by, " +
		alias + ".goal_id, " + alias + ".container_tags, " + alias + ".user_id, " +
		alias + ".access_count, " + alias + ".useful_retrievals, " + alias + ".total_retrievals, " +
		alias + ".last_accessed, " + alias + ".entities, " + alias + ".topics, " + alias + ".metadata"
}
