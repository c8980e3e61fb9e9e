// Package docstore implements the sales Storage and Feed on Firestore.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"sales_dashboard/internal/sales"
)

// Collection names under the namespace root.
const (
	Transactions = "transactions"
	Returns      = "returns"
	History      = "history"
	Settings     = "settings"
)

// Exchange rate setting document and field.
const (
	RateDoc   = "plnToCzk"
	RateField = "value"
)

// Config locates the Firestore database and the namespace inside it.
type Config struct {
	ProjectID       string
	CredentialsFile string
	Namespace       string
}

var (
	_ sales.Storage = (*Store)(nil)
	_ sales.Feed    = (*Store)(nil)
)

// Store reads and writes the dashboard collections stored under
// artifacts/{namespace}/public/data.
type Store struct {
	client *firestore.Client
	root   *firestore.DocumentRef
	logger *zap.Logger
}

// New connects to Firestore. FIRESTORE_EMULATOR_HOST is honored by the
// client library.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firestore project id not set")
	}
	if cfg.Namespace == "" {
		return nil, errors.New("firestore namespace not set")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create firestore client: %w", err)
	}
	return NewWithClient(client, cfg.Namespace, logger), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *firestore.Client, namespace string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	root := client.Collection("artifacts").Doc(namespace).Collection("public").Doc("data")
	return &Store{client: client, root: root, logger: logger}
}

// Close releases the client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) collection(name string) *firestore.CollectionRef {
	return s.root.Collection(name)
}

// UpsertReturn implements sales.Storage with a merging Set.
func (s *Store) UpsertReturn(ctx context.Context, id string, patch sales.ReturnPatch) error {
	if id == "" {
		return sales.ErrEmptyID
	}
	data := patchFields(patch)
	if len(data) == 0 {
		return nil
	}
	if _, err := s.collection(Returns).Doc(id).Set(ctx, data, firestore.MergeAll); err != nil {
		return fmt.Errorf("set %s/%s: %w", Returns, id, err)
	}
	return nil
}

// UpdateReturn implements sales.Storage. A missing document yields
// sales.ErrNotFound.
func (s *Store) UpdateReturn(ctx context.Context, id string, patch sales.ReturnPatch) error {
	if id == "" {
		return sales.ErrEmptyID
	}
	updates := patchUpdates(patch)
	if len(updates) == 0 {
		return nil
	}
	if _, err := s.collection(Returns).Doc(id).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return sales.ErrNotFound
		}
		return fmt.Errorf("update %s/%s: %w", Returns, id, err)
	}
	return nil
}

// AppendHistory implements sales.Storage.
func (s *Store) AppendHistory(ctx context.Context, entry *sales.HistoryEntry) error {
	if entry.ID == "" {
		return sales.ErrEmptyID
	}
	if _, err := s.collection(History).Doc(entry.ID).Create(ctx, entry); err != nil {
		return fmt.Errorf("create %s/%s: %w", History, entry.ID, err)
	}
	return nil
}

// WatchSales implements sales.Feed.
func (s *Store) WatchSales(ctx context.Context, fn func([]*sales.Sale)) error {
	return s.watchCollection(ctx, Transactions, func(docs []*firestore.DocumentSnapshot) {
		list := make([]*sales.Sale, 0, len(docs))
		for _, doc := range docs {
			var sale sales.Sale
			if err := doc.DataTo(&sale); err != nil {
				s.logger.Warn("skipping undecodable sale", zap.String("id", doc.Ref.ID), zap.Error(err))
				continue
			}
			sale.ID = doc.Ref.ID
			list = append(list, &sale)
		}
		fn(list)
	})
}

// WatchReturns implements sales.Feed.
func (s *Store) WatchReturns(ctx context.Context, fn func([]*sales.Return)) error {
	return s.watchCollection(ctx, Returns, func(docs []*firestore.DocumentSnapshot) {
		list := make([]*sales.Return, 0, len(docs))
		for _, doc := range docs {
			var r sales.Return
			if err := doc.DataTo(&r); err != nil {
				s.logger.Warn("skipping undecodable return", zap.String("id", doc.Ref.ID), zap.Error(err))
				continue
			}
			r.ID = doc.Ref.ID
			list = append(list, &r)
		}
		fn(list)
	})
}

// WatchRate implements sales.Feed on settings/plnToCzk.
func (s *Store) WatchRate(ctx context.Context, fn func(float64, bool)) error {
	it := s.collection(Settings).Doc(RateDoc).Snapshots(ctx)
	defer it.Stop()

	for {
		snap, err := it.Next()
		if err != nil {
			if ctx.Err() != nil || status.Code(err) == codes.Canceled {
				return nil
			}
			return fmt.Errorf("watch %s/%s: %w", Settings, RateDoc, err)
		}
		if !snap.Exists() {
			fn(0, false)
			continue
		}
		v, err := snap.DataAt(RateField)
		if err != nil {
			fn(0, false)
			continue
		}
		rate, ok := toFloat(v)
		fn(rate, ok)
	}
}

func (s *Store) watchCollection(ctx context.Context, name string, emit func([]*firestore.DocumentSnapshot)) error {
	it := s.collection(name).Snapshots(ctx)
	defer it.Stop()

	for {
		snap, err := it.Next()
		if err != nil {
			if ctx.Err() != nil || status.Code(err) == codes.Canceled {
				return nil
			}
			return fmt.Errorf("watch %s: %w", name, err)
		}
		docs, err := snap.Documents.GetAll()
		if err != nil {
			return fmt.Errorf("read %s snapshot: %w", name, err)
		}
		emit(docs)
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// patchFields maps the set fields of a patch onto document fields.
func patchFields(p sales.ReturnPatch) map[string]interface{} {
	m := map[string]interface{}{}
	putString(m, "itemName", p.ItemName)
	putString(m, "note", p.Note)
	putString(m, "seller", p.Seller)
	putString(m, "deliveryCity", p.DeliveryCity)
	putString(m, "customerAddress", p.CustomerAddress)
	putString(m, "phone1", p.Phone1)
	putString(m, "phone2", p.Phone2)
	if p.SalePriceCZK != nil {
		m["salePriceCzk"] = *p.SalePriceCZK
	}
	if p.DepositCZK != nil {
		m["depositCzk"] = *p.DepositCZK
	}
	if p.Returned != nil {
		m["returned"] = *p.Returned
	}
	if p.ReturnedAt != nil {
		m["returnedAt"] = *p.ReturnedAt
	}
	if p.ClearReturnedAt {
		m["returnedAt"] = firestore.Delete
	}
	if p.CreatedAt != nil {
		m["createdAt"] = *p.CreatedAt
	}
	return m
}

func patchUpdates(p sales.ReturnPatch) []firestore.Update {
	fields := patchFields(p)
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	updates := make([]firestore.Update, 0, len(keys))
	for _, k := range keys {
		updates = append(updates, firestore.Update{Path: k, Value: fields[k]})
	}
	return updates
}

func putString(m map[string]interface{}, key string, v *string) {
	if v != nil {
		m[key] = *v
	}
}
