package lists

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"

	"github.com/sourcegraph/conc/pool"

	"reviewverso/internal/apierror"
	"reviewverso/internal/backend"
	"reviewverso/models"
)

// hydrateWorkers bounds concurrent provider lookups per list.
const hydrateWorkers = 4

var (
	ErrInvalidListID  = apierror.Invalid("lists", "Identificador de lista inválido")
	ErrInvalidUserID  = apierror.Invalid("lists", "Identificador de usuario inválido")
	ErrTitleRequired  = apierror.Invalid("lists", "El título de la lista es obligatorio")
	ErrInvalidItem    = apierror.Invalid("lists", "Elemento de lista inválido")
	ErrDuplicatedItem = apierror.Invalid("lists", "La lista contiene elementos repetidos")
)

// MediaResolver resolves list items to display models.
type MediaResolver interface {
	Details(ctx context.Context, t models.MediaType, id string) (models.MediaItem, error)
}

// Service relays list CRUD to the backend and hydrates list items.
type Service struct {
	client   *backend.Client
	resolver MediaResolver
}

// NewService creates a lists service. resolver may be nil, in which case
// hydration reports every item as unresolved.
func NewService(client *backend.Client, resolver MediaResolver) *Service {
	return &Service{client: client, resolver: resolver}
}

func listPath(id int64) string {
	return "/lists/" + strconv.FormatInt(id, 10)
}

func normalizeItem(item models.ListItem) (models.ListItem, error) {
	t, err := models.ParseMediaType(string(item.ContentType))
	if err != nil {
		return item, ErrInvalidItem
	}
	item.ContentType = t
	item.ContentID = strings.TrimSpace(item.ContentID)
	if item.ContentID == "" {
		return item, ErrInvalidItem
	}
	item.APISource = t.APISource()
	return item, nil
}

func normalizeInput(in models.ListInput) (models.ListInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Title == "" {
		return in, ErrTitleRequired
	}
	seen := make(map[string]bool, len(in.Items))
	for i, item := range in.Items {
		item, err := normalizeItem(item)
		if err != nil {
			return in, err
		}
		key := string(item.ContentType) + ":" + item.ContentID
		if seen[key] {
			return in, ErrDuplicatedItem
		}
		seen[key] = true
		in.Items[i] = item
	}
	return in, nil
}

func ensureItems(list *models.List) {
	if list.Items == nil {
		list.Items = []models.ListItem{}
	}
}

// Create creates a list for the session's user.
func (s *Service) Create(ctx context.Context, in models.ListInput) (models.List, error) {
	in, err := normalizeInput(in)
	if err != nil {
		return models.List{}, err
	}
	var list models.List
	if err := s.client.Post(ctx, "/lists", in, &list); err != nil {
		return models.List{}, fmt.Errorf("create list: %w", err)
	}
	ensureItems(&list)
	return list, nil
}

// Get returns one list without resolving its items.
func (s *Service) Get(ctx context.Context, id int64) (models.List, error) {
	if id <= 0 {
		return models.List{}, ErrInvalidListID
	}
	var list models.List
	if err := s.client.Get(ctx, listPath(id), &list); err != nil {
		return models.List{}, fmt.Errorf("get list %d: %w", id, err)
	}
	ensureItems(&list)
	return list, nil
}

// GetHydrated returns a list with every item resolved.
func (s *Service) GetHydrated(ctx context.Context, id int64) (models.HydratedList, error) {
	list, err := s.Get(ctx, id)
	if err != nil {
		return models.HydratedList{}, err
	}
	return s.Hydrate(ctx, list), nil
}

// ByUser returns the lists of a user.
func (s *Service) ByUser(ctx context.Context, userID int64) ([]models.List, error) {
	if userID <= 0 {
		return nil, ErrInvalidUserID
	}
	var lists []models.List
	if err := s.client.Get(ctx, "/lists/user/"+strconv.FormatInt(userID, 10), &lists); err != nil {
		return nil, fmt.Errorf("list lists of user %d: %w", userID, err)
	}
	if lists == nil {
		lists = []models.List{}
	}
	for i := range lists {
		ensureItems(&lists[i])
	}
	return lists, nil
}

// Update replaces title, description and items of a list.
func (s *Service) Update(ctx context.Context, id int64, in models.ListInput) (models.List, error) {
	if id <= 0 {
		return models.List{}, ErrInvalidListID
	}
	in, err := normalizeInput(in)
	if err != nil {
		return models.List{}, err
	}
	var list models.List
	if err := s.client.Put(ctx, listPath(id), in, &list); err != nil {
		return models.List{}, fmt.Errorf("update list %d: %w", id, err)
	}
	if list.ID == 0 {
		list.ID = id
	}
	ensureItems(&list)
	return list, nil
}

// Delete removes a list.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidListID
	}
	if err := s.client.Delete(ctx, listPath(id)); err != nil {
		return fmt.Errorf("delete list %d: %w", id, err)
	}
	return nil
}

// AddItem appends content to a list.
func (s *Service) AddItem(ctx context.Context, id int64, item models.ListItem) (models.List, error) {
	if id <= 0 {
		return models.List{}, ErrInvalidListID
	}
	item, err := normalizeItem(item)
	if err != nil {
		return models.List{}, err
	}
	var list models.List
	if err := s.client.Post(ctx, listPath(id)+"/items", item, &list); err != nil {
		return models.List{}, fmt.Errorf("add item to list %d: %w", id, err)
	}
	if list.ID == 0 {
		list.ID = id
	}
	ensureItems(&list)
	return list, nil
}

// RemoveItem removes content from a list.
func (s *Service) RemoveItem(ctx context.Context, id int64, contentType models.MediaType, contentID string) error {
	if id <= 0 {
		return ErrInvalidListID
	}
	item, err := normalizeItem(models.ListItem{ContentType: contentType, ContentID: contentID})
	if err != nil {
		return err
	}
	path := listPath(id) + "/items/" + url.PathEscape(string(item.ContentType)) + "/" + url.PathEscape(item.ContentID)
	if err := s.client.Delete(ctx, path); err != nil {
		return fmt.Errorf("remove item from list %d: %w", id, err)
	}
	return nil
}

// Hydrate resolves every item of list through the resolver with a bounded
// worker pool. Items keep their order; a failed lookup yields an entry with
// Error set instead of failing the whole list.
func (s *Service) Hydrate(ctx context.Context, list models.List) models.HydratedList {
	ensureItems(&list)
	out := models.HydratedList{
		List:  list,
		Media: make([]models.HydratedListItem, len(list.Items)),
	}

	p := pool.New().WithMaxGoroutines(hydrateWorkers)
	for i, item := range list.Items {
		p.Go(func() {
			out.Media[i] = s.hydrateItem(ctx, item)
		})
	}
	p.Wait()
	return out
}

func (s *Service) hydrateItem(ctx context.Context, item models.ListItem) models.HydratedListItem {
	entry := models.HydratedListItem{ListItem: item}
	if s.resolver == nil {
		entry.Error = apierror.MsgUnexpected
		return entry
	}
	t, err := models.ParseMediaType(string(item.ContentType))
	if err != nil {
		entry.Error = "Tipo de contenido desconocido"
		return entry
	}
	media, err := s.resolver.Details(ctx, t, item.ContentID)
	if err != nil {
		log.Printf("[lists] failed to resolve %s %s: %v", t, item.ContentID, err)
		entry.Error = apierror.Message(err)
		return entry
	}
	entry.Media = &media
	return entry
}
