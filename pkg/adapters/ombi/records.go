package ombi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/springjools/ombibot/pkg/domain"
)

// record is the subset of an Ombi movie record the bot uses.
// Keys match case-insensitively, so "overView" lands in Overview.
type record struct {
	ID           string  `mapstructure:"id"`
	TheMovieDbID string  `mapstructure:"theMovieDbId"`
	Title        string  `mapstructure:"title"`
	Available    bool    `mapstructure:"available"`
	Requested    bool    `mapstructure:"requested"`
	ReleaseDate  string  `mapstructure:"releaseDate"`
	Overview     string  `mapstructure:"overview"`
	VoteAverage  float64 `mapstructure:"voteAverage"`
	VoteCount    int     `mapstructure:"voteCount"`
}

// decodeRecord normalizes one generic JSON object. Weak typing accepts ids
// sent as numbers or strings and flags sent as "true"/"false".
func decodeRecord(raw map[string]any) (record, error) {
	var rec record
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &rec,
	})
	if err != nil {
		return rec, err
	}
	if err := dec.Decode(raw); err != nil {
		return rec, err
	}
	if rec.ID == "" || rec.ID == "0" {
		rec.ID = rec.TheMovieDbID
	}
	rec.ID = strings.TrimSpace(rec.ID)
	return rec, nil
}

func (r record) item() domain.CatalogItem {
	title := strings.TrimSpace(r.Title)
	if title == "" {
		title = domain.NotAvailable
	}
	return domain.CatalogItem{
		ID:           domain.ItemID(r.ID),
		Title:        title,
		ReleaseYear:  domain.ReleaseYearOf(r.ReleaseDate),
		Availability: domain.AvailabilityOf(r.Available, r.Requested),
	}
}

func (r record) detailedItem() domain.CatalogItem {
	item := r.item()
	item.Detail = &domain.ItemDetail{
		VoteAverage: r.VoteAverage,
		VoteCount:   r.VoteCount,
		Overview:    strings.TrimSpace(r.Overview),
		ReleaseDate: r.ReleaseDate,
	}
	return item
}

// unmarshal decodes JSON keeping numbers exact, so large ids survive.
func unmarshal(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

// decodeList turns a JSON array into items, in upstream order. Records that
// cannot be decoded or whose id cannot ride in a token are skipped.
func (c *Client) decodeList(op string, raw []byte) ([]domain.CatalogItem, error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return []domain.CatalogItem{}, nil
	}

	var objects []map[string]any
	if err := unmarshal(raw, &objects); err != nil {
		return nil, domain.NewProtocolError(op, http.StatusOK, fmt.Errorf("decode result list: %w", err))
	}

	items := make([]domain.CatalogItem, 0, len(objects))
	for i, obj := range objects {
		rec, err := decodeRecord(obj)
		if err != nil {
			c.logger.Warn("Skipping malformed catalog record", "op", op, "index", i, "err", err)
			continue
		}
		if err := c.codec.Validate(domain.ItemID(rec.ID)); err != nil {
			c.logger.Warn("Skipping catalog record with unusable id", "op", op, "index", i, "title", rec.Title, "err", err)
			continue
		}
		items = append(items, rec.item())
	}
	return items, nil
}

func (c *Client) decodeDetail(op string, id domain.ItemID, raw []byte) (domain.CatalogItem, error) {
	var obj map[string]any
	if err := unmarshal(raw, &obj); err != nil {
		return domain.CatalogItem{}, domain.NewProtocolError(op, http.StatusOK, fmt.Errorf("decode detail: %w", err))
	}
	if len(obj) == 0 {
		return domain.CatalogItem{}, domain.NewProtocolError(op, http.StatusOK, fmt.Errorf("empty detail for item %s", id))
	}

	rec, err := decodeRecord(obj)
	if err != nil {
		return domain.CatalogItem{}, domain.NewProtocolError(op, http.StatusOK, fmt.Errorf("decode detail: %w", err))
	}
	if rec.ID == "" {
		rec.ID = string(id)
	}
	return rec.detailedItem(), nil
}
