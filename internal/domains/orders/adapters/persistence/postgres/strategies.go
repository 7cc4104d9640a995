package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	catalogdomain "github.com/shopkit-go/shop-api-server/internal/domains/catalog/domain"
	membersdomain "github.com/shopkit-go/shop-api-server/internal/domains/members/domain"
	"github.com/shopkit-go/shop-api-server/internal/domains/orders/domain"
	"github.com/shopkit-go/shop-api-server/internal/domains/orders/ports"
	platformuow "github.com/shopkit-go/shop-api-server/internal/platform/uow"
	"github.com/shopkit-go/shop-api-server/internal/shared/association"
	"github.com/shopkit-go/shop-api-server/internal/shared/unitofwork"
)

// predicate is one structured filter clause. Search fields translate to
// predicates instead of string concatenation so the dynamic query stays
// parameterized.
type predicate struct {
	expr string
	args []any
}

func buildPredicates(search ports.Search) []predicate {
	var preds []predicate
	if search.Status != nil {
		preds = append(preds, predicate{expr: "orders.status = ?", args: []any{string(*search.Status)}})
	}
	if search.MemberName != "" {
		preds = append(preds, predicate{expr: "members.name LIKE ?", args: []any{"%" + search.MemberName + "%"}})
	}
	return preds
}

func applyPredicates(q *gorm.DB, preds []predicate) *gorm.DB {
	for _, p := range preds {
		q = q.Where(p.expr, p.args...)
	}
	return q
}

// window applies the offset/limit pair, or the unpaged cap when page is nil.
func window(q *gorm.DB, page *ports.Page) *gorm.DB {
	if page == nil {
		return q.Limit(ports.MaxResults)
	}
	p := page.Normalize()
	return q.Offset(p.Offset).Limit(p.Limit)
}

// FindAll issues the root query only; member, delivery, and items stay lazy.
// The members join appears only when the name filter needs it, and even then
// only the orders columns come back.
func (r *Repository) FindAll(ctx context.Context, u unitofwork.UnitOfWork, search ports.Search, page *ports.Page) ([]*domain.Order, error) {
	db, err := platformuow.DB(u)
	if err != nil {
		return nil, err
	}
	q := db.WithContext(ctx).Model(&orderRecord{}).Select("orders.*")
	if search.MemberName != "" {
		q = q.Joins("JOIN members ON members.id = orders.member_id")
	}
	q = applyPredicates(q, buildPredicates(search))
	q = window(q.Order("orders.id ASC"), page)

	var records []orderRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}
	orders := make([]*domain.Order, 0, len(records))
	for _, record := range records {
		orders = append(orders, r.lazyOrder(db, record))
	}
	return orders, nil
}

// orderToOneRow is the scan target for the to-one join: one row per order,
// member and delivery columns aliased in alongside the root.
type orderToOneRow struct {
	ID             int64
	MemberID       int64
	OrderDate      time.Time
	Status         string
	MemberName     string
	City           string
	Street         string
	Zipcode        string
	DeliveryID     int64
	DeliveryStatus string
}

const toOneSelect = `orders.id, orders.member_id, orders.order_date, orders.status,
members.name AS member_name,
deliveries.id AS delivery_id, deliveries.city, deliveries.street, deliveries.zipcode,
deliveries.status AS delivery_status`

func toOneQuery(ctx context.Context, db *gorm.DB, search ports.Search) *gorm.DB {
	q := db.WithContext(ctx).Table("orders").Select(toOneSelect).
		Joins("JOIN members ON members.id = orders.member_id").
		Joins("JOIN deliveries ON deliveries.order_id = orders.id")
	return applyPredicates(q, buildPredicates(search)).Order("orders.id ASC")
}

func (r *Repository) fromToOneRow(db *gorm.DB, row orderToOneRow) *domain.Order {
	order := domain.Rehydrate(row.ID, row.OrderDate, domain.Status(row.Status))
	member := &membersdomain.Member{
		ID:      row.MemberID,
		Name:    row.MemberName,
		Address: membersdomain.NewAddress(row.City, row.Street, row.Zipcode),
	}
	order.Member = association.Resolved(row.MemberID, member)
	delivery := domain.RehydrateDelivery(
		row.DeliveryID,
		membersdomain.NewAddress(row.City, row.Street, row.Zipcode),
		domain.DeliveryStatus(row.DeliveryStatus),
	)
	order.Delivery = association.Resolved(row.ID, order.AttachDelivery(delivery))
	order.Items = association.LazyCollection(row.ID, r.itemsResolver(db, order))
	return order
}

// FindAllWithMemberDelivery joins the to-one references into the root query.
// Collections stay lazy; touching them still costs one round trip per order.
func (r *Repository) FindAllWithMemberDelivery(ctx context.Context, u unitofwork.UnitOfWork, search ports.Search, page *ports.Page) ([]*domain.Order, error) {
	db, err := platformuow.DB(u)
	if err != nil {
		return nil, err
	}
	var rows []orderToOneRow
	if err := window(toOneQuery(ctx, db, search), page).Scan(&rows).Error; err != nil {
		return nil, err
	}
	orders := make([]*domain.Order, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, r.fromToOneRow(db, row))
	}
	return orders, nil
}

// orderFlatRow is one row of the full collection join: order, member,
// delivery, line, and item columns in a single result set. The order-level
// columns repeat once per line.
type orderFlatRow struct {
	orderToOneRow
	OrderItemID int64
	OrderPrice  int64
	Count       int
	ItemID      int64
	ItemKind    string
	ItemName    string
	ItemPrice   int64
	ItemStock   int
	ItemAuthor  string
	ItemISBN    string
}

const flatSelect = toOneSelect + `,
order_items.id AS order_item_id, order_items.order_price, order_items.count,
items.id AS item_id, items.kind AS item_kind, items.name AS item_name,
items.price AS item_price, items.stock_quantity AS item_stock,
items.author AS item_author, items.isbn AS item_isbn`

func (row orderFlatRow) toItem() *catalogdomain.Item {
	item := &catalogdomain.Item{
		ID:            row.ItemID,
		Kind:          catalogdomain.Kind(row.ItemKind),
		Name:          row.ItemName,
		Price:         row.ItemPrice,
		StockQuantity: row.ItemStock,
	}
	if item.Kind == catalogdomain.KindBook {
		item.Book = &catalogdomain.BookDetails{Author: row.ItemAuthor, ISBN: row.ItemISBN}
	}
	return item
}

// FindAllWithItems materializes everything in one query. The join multiplies
// order rows by their line count, so the duplicates are collapsed here in
// encounter order and the cap counts distinct orders, not rows. Pagination is
// rejected upstream for the same multiplication reason.
func (r *Repository) FindAllWithItems(ctx context.Context, u unitofwork.UnitOfWork, search ports.Search) ([]*domain.Order, error) {
	db, err := platformuow.DB(u)
	if err != nil {
		return nil, err
	}
	q := db.WithContext(ctx).Table("orders").Select(flatSelect).
		Joins("JOIN members ON members.id = orders.member_id").
		Joins("JOIN deliveries ON deliveries.order_id = orders.id").
		Joins("JOIN order_items ON order_items.order_id = orders.id").
		Joins("JOIN items ON items.id = order_items.item_id")
	q = applyPredicates(q, buildPredicates(search)).
		Order("orders.id ASC, order_items.id ASC")

	var rows []orderFlatRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}

	byID := make(map[int64]*domain.Order, len(rows))
	lines := make(map[int64][]*domain.OrderItem, len(rows))
	var orders []*domain.Order
	for _, row := range rows {
		order, seen := byID[row.ID]
		if !seen {
			if len(orders) == ports.MaxResults {
				break
			}
			order = r.fromToOneRow(db, row.orderToOneRow)
			byID[row.ID] = order
			orders = append(orders, order)
		}
		line := domain.RehydrateOrderItem(
			row.OrderItemID,
			association.Resolved(row.ItemID, row.toItem()),
			row.OrderPrice,
			row.Count,
		)
		lines[row.ID] = append(lines[row.ID], line)
	}
	for _, order := range orders {
		order.Items = association.ResolvedCollection(order.ID, order.AttachItems(lines[order.ID]))
	}
	return orders, nil
}

// lineRow is one order line joined with its item, keyed by the owning order.
type lineRow struct {
	OrderID     int64
	OrderItemID int64
	OrderPrice  int64
	Count       int
	ItemID      int64
	ItemKind    string
	ItemName    string
	ItemPrice   int64
	ItemStock   int
	ItemAuthor  string
	ItemISBN    string
}

func (row lineRow) toItem() *catalogdomain.Item {
	item := &catalogdomain.Item{
		ID:            row.ItemID,
		Kind:          catalogdomain.Kind(row.ItemKind),
		Name:          row.ItemName,
		Price:         row.ItemPrice,
		StockQuantity: row.ItemStock,
	}
	if item.Kind == catalogdomain.KindBook {
		item.Book = &catalogdomain.BookDetails{Author: row.ItemAuthor, ISBN: row.ItemISBN}
	}
	return item
}

func loadLines(ctx context.Context, db *gorm.DB, orderIDs []int64) (map[int64][]*domain.OrderItem, error) {
	var rows []lineRow
	err := db.WithContext(ctx).Table("order_items").
		Select(`order_items.order_id, order_items.id AS order_item_id,
order_items.order_price, order_items.count,
items.id AS item_id, items.kind AS item_kind, items.name AS item_name,
items.price AS item_price, items.stock_quantity AS item_stock,
items.author AS item_author, items.isbn AS item_isbn`).
		Joins("JOIN items ON items.id = order_items.item_id").
		Where("order_items.order_id IN ?", orderIDs).
		Order("order_items.order_id ASC, order_items.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	lines := make(map[int64][]*domain.OrderItem, len(orderIDs))
	for _, row := range rows {
		line := domain.RehydrateOrderItem(
			row.OrderItemID,
			association.Resolved(row.ItemID, row.toItem()),
			row.OrderPrice,
			row.Count,
		)
		lines[row.OrderID] = append(lines[row.OrderID], line)
	}
	return lines, nil
}

// FindAllBatched runs the to-one join for the roots and then resolves the
// item collections in grouped IN-queries of at most batchSize orders each:
// 1 + ceil(N/batchSize) round trips, and still pageable because the root
// query never touches the collection.
func (r *Repository) FindAllBatched(ctx context.Context, u unitofwork.UnitOfWork, search ports.Search, page *ports.Page, batchSize int) ([]*domain.Order, error) {
	db, err := platformuow.DB(u)
	if err != nil {
		return nil, err
	}
	var rows []orderToOneRow
	if err := window(toOneQuery(ctx, db, search), page).Scan(&rows).Error; err != nil {
		return nil, err
	}
	orders := make([]*domain.Order, 0, len(rows))
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, r.fromToOneRow(db, row))
		ids = append(ids, row.ID)
	}
	if batchSize <= 0 {
		batchSize = ports.DefaultLimit
	}
	lines := make(map[int64][]*domain.OrderItem, len(ids))
	for start := 0; start < len(ids); start += batchSize {
		end := min(start+batchSize, len(ids))
		chunk, err := loadLines(ctx, db, ids[start:end])
		if err != nil {
			return nil, err
		}
		for id, items := range chunk {
			lines[id] = items
		}
	}
	for _, order := range orders {
		order.Items.Bind(order.AttachItems(lines[order.ID]))
	}
	return orders, nil
}

// summaryRow is the root projection: exactly the order-level fields of the
// read model, no aggregate rehydration.
type summaryRow struct {
	ID         int64
	MemberName string
	OrderDate  time.Time
	Status     string
	City       string
	Street     string
	Zipcode    string
}

func (row summaryRow) toSummary() ports.OrderSummary {
	return ports.OrderSummary{
		OrderID:    row.ID,
		MemberName: row.MemberName,
		OrderDate:  row.OrderDate,
		Status:     domain.Status(row.Status),
		City:       row.City,
		Street:     row.Street,
		Zipcode:    row.Zipcode,
	}
}

const summarySelect = `orders.id, members.name AS member_name, orders.order_date, orders.status,
deliveries.city, deliveries.street, deliveries.zipcode`

// FindSummaries bypasses the aggregate entirely: one projection query for
// the order-level fields, one IN-query for every line of the page, grouped
// client side. Two round trips regardless of order count.
func (r *Repository) FindSummaries(ctx context.Context, u unitofwork.UnitOfWork, search ports.Search, page *ports.Page) ([]ports.OrderSummary, error) {
	db, err := platformuow.DB(u)
	if err != nil {
		return nil, err
	}
	q := db.WithContext(ctx).Table("orders").Select(summarySelect).
		Joins("JOIN members ON members.id = orders.member_id").
		Joins("JOIN deliveries ON deliveries.order_id = orders.id")
	q = window(applyPredicates(q, buildPredicates(search)).Order("orders.id ASC"), page)

	var rows []summaryRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []ports.OrderSummary{}, nil
	}

	summaries := make([]ports.OrderSummary, 0, len(rows))
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, row.toSummary())
		ids = append(ids, row.ID)
	}

	var lines []lineRow
	err = db.WithContext(ctx).Table("order_items").
		Select(`order_items.order_id, order_items.order_price, order_items.count,
items.name AS item_name`).
		Joins("JOIN items ON items.id = order_items.item_id").
		Where("order_items.order_id IN ?", ids).
		Order("order_items.order_id ASC, order_items.id ASC").
		Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	grouped := make(map[int64][]ports.OrderLine, len(ids))
	for _, line := range lines {
		grouped[line.OrderID] = append(grouped[line.OrderID], ports.OrderLine{
			ItemName:   line.ItemName,
			OrderPrice: line.OrderPrice,
			Count:      line.Count,
		})
	}
	for i := range summaries {
		summaries[i].Items = grouped[summaries[i].OrderID]
	}
	return summaries, nil
}

// flatSummaryRow is one line of the flat projection join; the order-level
// fields travel once per line.
type flatSummaryRow struct {
	summaryRow
	ItemName   string
	OrderPrice int64
	Count      int
}

// flatKey groups flat rows by the full order-level tuple, not just the
// identifier, so two distinct orders can never collapse even if identifiers
// were ever reused across a view.
type flatKey struct {
	OrderID    int64
	MemberName string
	OrderDate  time.Time
	Status     string
	City       string
	Street     string
	Zipcode    string
}

func (row flatSummaryRow) key() flatKey {
	return flatKey{
		OrderID:    row.ID,
		MemberName: row.MemberName,
		OrderDate:  row.OrderDate,
		Status:     row.Status,
		City:       row.City,
		Street:     row.Street,
		Zipcode:    row.Zipcode,
	}
}

// FindSummariesFlat is the single-query projection: one flat join where each
// row is one order line, grouped back into summaries in encounter order. The
// cap counts distinct orders. Not pageable; the database window would slice
// lines, not orders.
func (r *Repository) FindSummariesFlat(ctx context.Context, u unitofwork.UnitOfWork, search ports.Search) ([]ports.OrderSummary, error) {
	db, err := platformuow.DB(u)
	if err != nil {
		return nil, err
	}
	q := db.WithContext(ctx).Table("orders").
		Select(summarySelect+`, items.name AS item_name, order_items.order_price, order_items.count`).
		Joins("JOIN members ON members.id = orders.member_id").
		Joins("JOIN deliveries ON deliveries.order_id = orders.id").
		Joins("JOIN order_items ON order_items.order_id = orders.id").
		Joins("JOIN items ON items.id = order_items.item_id")
	q = applyPredicates(q, buildPredicates(search)).
		Order("orders.id ASC, order_items.id ASC")

	var rows []flatSummaryRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}

	index := make(map[flatKey]int, len(rows))
	summaries := make([]ports.OrderSummary, 0, len(rows))
	for _, row := range rows {
		at, seen := index[row.key()]
		if !seen {
			if len(summaries) == ports.MaxResults {
				break
			}
			at = len(summaries)
			index[row.key()] = at
			summaries = append(summaries, row.toSummary())
		}
		summaries[at].Items = append(summaries[at].Items, ports.OrderLine{
			ItemName:   row.ItemName,
			OrderPrice: row.OrderPrice,
			Count:      row.Count,
		})
	}
	return summaries, nil
}
