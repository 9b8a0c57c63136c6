package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"lumea_back_end/internal/database"
	"lumea_back_end/internal/models"
)

const reversalIndex = "reversal_requests"

//
// --- INDEXATION DANS ELASTICSEARCH ---
//

// IndexReversalRequest indexe une demande pour la recherche admin.
// Best-effort : une panne Elastic ne doit jamais bloquer le flux de reversal.
func IndexReversalRequest(r models.ReversalRequest) {
	if database.Elastic == nil {
		return
	}

	data, _ := json.Marshal(r)
	req := esapi.IndexRequest{
		Index:      reversalIndex,
		DocumentID: r.ID.String(),
		Body:       bytes.NewReader(data),
		Refresh:    "true",
	}

	res, err := req.Do(context.Background(), database.Elastic)
	if err != nil {
		log.Println("❌ Erreur envoi Elastic:", err)
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Printf("⚠️ Elastic a renvoyé une erreur pour %s: %s", r.ID, res.String())
	}
}

//
// --- RECHERCHE DANS ELASTICSEARCH ---
//

// SearchReversalRequestIDs retourne les IDs des demandes correspondant au
// texte libre (description, motif, note admin), filtrées par statut si fourni.
func SearchReversalRequestIDs(query, status string) ([]string, error) {
	if database.Elastic == nil {
		return nil, errors.New("client Elasticsearch non initialisé")
	}

	must := []map[string]interface{}{
		{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"description", "reason", "admin_note", "user_id"},
			},
		},
	}
	if status != "" {
		must = append(must, map[string]interface{}{
			"term": map[string]interface{}{"status.keyword": status},
		})
	}

	var buf bytes.Buffer
	q := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"must": must},
		},
	}
	if err := json.NewEncoder(&buf).Encode(q); err != nil {
		return nil, fmt.Errorf("erreur encodage requête: %v", err)
	}

	req := esapi.SearchRequest{
		Index: []string{reversalIndex},
		Body:  &buf,
	}
	res, err := req.Do(context.Background(), database.Elastic)
	if err != nil {
		return nil, fmt.Errorf("erreur requête Elastic: %v", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, errors.New("index non trouvé ou vide")
	}

	var r map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("erreur décodage JSON: %v", err)
	}

	hitsData, ok := r["hits"].(map[string]interface{})
	if !ok {
		return nil, errors.New("réponse Elastic invalide (pas de hits)")
	}
	hitsArray, ok := hitsData["hits"].([]interface{})
	if !ok {
		return nil, nil
	}

	ids := make([]string, 0, len(hitsArray))
	for _, hit := range hitsArray {
		hitMap, _ := hit.(map[string]interface{})
		if id, ok := hitMap["_id"].(string); ok {
			ids = append(ids, id)
		}
	}

	return ids, nil
}
