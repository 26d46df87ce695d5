package service

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"time"

	"github.com/cantina-pos/api/internal/database"
	"github.com/cantina-pos/api/internal/events"
	"github.com/cantina-pos/api/internal/money"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// --- Transaction fakes ---

// memTx implements pgx.Tx on top of memDB. Rollback without a prior Commit
// restores the state captured at Begin.
// The unused methods panic so we catch accidental calls.
type memTx struct {
	db        *memDB
	snapshot  memState
	commitErr error
	committed bool
	done      bool
}

func (m *memTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *memTx) Commit(ctx context.Context) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	m.committed = true
	m.done = true
	return nil
}
func (m *memTx) Rollback(ctx context.Context) error {
	if !m.done {
		m.db.memState = m.snapshot
		m.db.rollbacks++
		m.done = true
	}
	return nil
}
func (m *memTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *memTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *memTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *memTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *memTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *memTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *memTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *memTx) Conn() *pgx.Conn { panic("not implemented") }

// memPool implements TxBeginner.
type memPool struct {
	db        *memDB
	beginErr  error
	commitErr error
	begins    int
	last      *memTx
}

func (p *memPool) Begin(ctx context.Context) (pgx.Tx, error) {
	if p.beginErr != nil {
		return nil, p.beginErr
	}
	p.begins++
	p.last = &memTx{db: p.db, snapshot: p.db.clone(), commitErr: p.commitErr}
	return p.last, nil
}

// --- In-memory store ---

type memState struct {
	users        map[int32]database.User
	cafeterias   map[int32]database.Cafeteria
	dishes       map[int32]database.Dish
	menus        map[int32]database.DailyMenu
	menuItems    map[int32]database.DailyMenuItem
	reservations map[int32]database.Reservation
	orderItems   map[int32]database.OrderItem
	journal      []database.BalanceTransaction
	nextID       int32
}

// memDB implements every store interface of this package against maps.
type memDB struct {
	memState
	failOn    map[string]error
	rollbacks int
}

func newMemDB() *memDB {
	return &memDB{
		memState: memState{
			users:        map[int32]database.User{},
			cafeterias:   map[int32]database.Cafeteria{},
			dishes:       map[int32]database.Dish{},
			menus:        map[int32]database.DailyMenu{},
			menuItems:    map[int32]database.DailyMenuItem{},
			reservations: map[int32]database.Reservation{},
			orderItems:   map[int32]database.OrderItem{},
			nextID:       100,
		},
		failOn: map[string]error{},
	}
}

func (m *memDB) clone() memState {
	return memState{
		users:        maps.Clone(m.users),
		cafeterias:   maps.Clone(m.cafeterias),
		dishes:       maps.Clone(m.dishes),
		menus:        maps.Clone(m.menus),
		menuItems:    maps.Clone(m.menuItems),
		reservations: maps.Clone(m.reservations),
		orderItems:   maps.Clone(m.orderItems),
		journal:      append([]database.BalanceTransaction(nil), m.journal...),
		nextID:       m.nextID,
	}
}

func (m *memDB) id() int32 {
	m.nextID++
	return m.nextID
}

func (m *memDB) check(op string) error {
	return m.failOn[op]
}

// --- Fixtures ---

func (m *memDB) addUser(id int32, balance string) {
	m.users[id] = database.User{ID: id, Role: "student", Balance: money.ToNumeric(money.MustParse(balance)), IsActive: true}
}

func (m *memDB) addCafeteria(id int32, name string) {
	m.cafeterias[id] = database.Cafeteria{ID: id, Name: name}
}

func (m *memDB) addDish(id int32, name, price string) {
	m.dishes[id] = database.Dish{ID: id, Name: name, Price: money.ToNumeric(money.MustParse(price)), Category: "main", IsAvailable: true}
}

func (m *memDB) balance(id int32) string {
	return money.Format(m.users[id].Balance)
}

// --- Users / ledger ---

func (m *memDB) GetUserBalanceForUpdate(ctx context.Context, id int32) (pgtype.Numeric, error) {
	if err := m.check("GetUserBalanceForUpdate"); err != nil {
		return pgtype.Numeric{}, err
	}
	u, ok := m.users[id]
	if !ok {
		return pgtype.Numeric{}, pgx.ErrNoRows
	}
	return u.Balance, nil
}

func (m *memDB) DebitUserBalance(ctx context.Context, arg database.DebitUserBalanceParams) (pgtype.Numeric, error) {
	if err := m.check("DebitUserBalance"); err != nil {
		return pgtype.Numeric{}, err
	}
	u, ok := m.users[arg.ID]
	if !ok {
		return pgtype.Numeric{}, pgx.ErrNoRows
	}
	bal := money.FromNumeric(u.Balance)
	amt := money.FromNumeric(arg.Amount)
	if bal.LessThan(amt) {
		return pgtype.Numeric{}, pgx.ErrNoRows
	}
	u.Balance = money.ToNumeric(bal.Sub(amt))
	m.users[arg.ID] = u
	return u.Balance, nil
}

func (m *memDB) CreditUserBalance(ctx context.Context, arg database.CreditUserBalanceParams) (pgtype.Numeric, error) {
	if err := m.check("CreditUserBalance"); err != nil {
		return pgtype.Numeric{}, err
	}
	u, ok := m.users[arg.ID]
	if !ok {
		return pgtype.Numeric{}, pgx.ErrNoRows
	}
	u.Balance = money.ToNumeric(money.FromNumeric(u.Balance).Add(money.FromNumeric(arg.Amount)))
	m.users[arg.ID] = u
	return u.Balance, nil
}

func (m *memDB) CreateBalanceTransaction(ctx context.Context, arg database.CreateBalanceTransactionParams) (database.BalanceTransaction, error) {
	if err := m.check("CreateBalanceTransaction"); err != nil {
		return database.BalanceTransaction{}, err
	}
	entry := database.BalanceTransaction{
		ID:            m.id(),
		UserID:        arg.UserID,
		ReservationID: arg.ReservationID,
		Kind:          arg.Kind,
		Amount:        arg.Amount,
		BalanceAfter:  arg.BalanceAfter,
		CreatedAt:     time.Now(),
	}
	m.journal = append(m.journal, entry)
	return entry, nil
}

// --- Catalog ---

func (m *memDB) GetCafeteria(ctx context.Context, id int32) (database.Cafeteria, error) {
	if err := m.check("GetCafeteria"); err != nil {
		return database.Cafeteria{}, err
	}
	c, ok := m.cafeterias[id]
	if !ok {
		return database.Cafeteria{}, pgx.ErrNoRows
	}
	return c, nil
}

func (m *memDB) GetDish(ctx context.Context, id int32) (database.Dish, error) {
	if err := m.check("GetDish"); err != nil {
		return database.Dish{}, err
	}
	d, ok := m.dishes[id]
	if !ok {
		return database.Dish{}, pgx.ErrNoRows
	}
	return d, nil
}

func (m *memDB) CreateDish(ctx context.Context, arg database.CreateDishParams) (database.Dish, error) {
	if err := m.check("CreateDish"); err != nil {
		return database.Dish{}, err
	}
	d := database.Dish{
		ID:          m.id(),
		Name:        arg.Name,
		Description: arg.Description,
		Price:       arg.Price,
		Category:    arg.Category,
		IsAvailable: arg.IsAvailable,
	}
	m.dishes[d.ID] = d
	return d, nil
}

func (m *memDB) UpdateDish(ctx context.Context, arg database.UpdateDishParams) (database.Dish, error) {
	if err := m.check("UpdateDish"); err != nil {
		return database.Dish{}, err
	}
	d, ok := m.dishes[arg.ID]
	if !ok {
		return database.Dish{}, pgx.ErrNoRows
	}
	d.Name, d.Description, d.Price, d.Category, d.IsAvailable = arg.Name, arg.Description, arg.Price, arg.Category, arg.IsAvailable
	m.dishes[d.ID] = d
	return d, nil
}

func (m *memDB) LockDish(ctx context.Context, id int32) (int32, error) {
	if _, ok := m.dishes[id]; !ok {
		return 0, pgx.ErrNoRows
	}
	return id, nil
}

func (m *memDB) CountDishReferences(ctx context.Context, id int32) (database.CountDishReferencesRow, error) {
	if err := m.check("CountDishReferences"); err != nil {
		return database.CountDishReferencesRow{}, err
	}
	var row database.CountDishReferencesRow
	for _, mi := range m.menuItems {
		if mi.DishID == id {
			row.MenuItemCount++
		}
	}
	for _, oi := range m.orderItems {
		if oi.DishID == id {
			row.OrderItemCount++
		}
	}
	return row, nil
}

func (m *memDB) DeleteDish(ctx context.Context, id int32) error {
	if err := m.check("DeleteDish"); err != nil {
		return err
	}
	refs, _ := m.CountDishReferences(ctx, id)
	if refs.MenuItemCount+refs.OrderItemCount > 0 {
		return &pgconn.PgError{Code: "23503", ConstraintName: "daily_menu_items_dish_id_fkey"}
	}
	delete(m.dishes, id)
	return nil
}

func (m *memDB) LockCafeteria(ctx context.Context, id int32) (int32, error) {
	if _, ok := m.cafeterias[id]; !ok {
		return 0, pgx.ErrNoRows
	}
	return id, nil
}

func (m *memDB) CountCafeteriaReferences(ctx context.Context, id int32) (database.CountCafeteriaReferencesRow, error) {
	var row database.CountCafeteriaReferencesRow
	for _, menu := range m.menus {
		if menu.CafeteriaID == id {
			row.MenuCount++
		}
	}
	for _, r := range m.reservations {
		if r.CafeteriaID == id {
			row.ReservationCount++
		}
	}
	return row, nil
}

func (m *memDB) DeleteCafeteria(ctx context.Context, id int32) error {
	if err := m.check("DeleteCafeteria"); err != nil {
		return err
	}
	delete(m.cafeterias, id)
	return nil
}

// --- Reservations ---

func (m *memDB) CreateReservation(ctx context.Context, arg database.CreateReservationParams) (database.Reservation, error) {
	if err := m.check("CreateReservation"); err != nil {
		return database.Reservation{}, err
	}
	r := database.Reservation{
		ID:          m.id(),
		UserID:      arg.UserID,
		CafeteriaID: arg.CafeteriaID,
		Total:       arg.Total,
		Status:      arg.Status,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	m.reservations[r.ID] = r
	return r, nil
}

func (m *memDB) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	if err := m.check("CreateOrderItem"); err != nil {
		return database.OrderItem{}, err
	}
	item := database.OrderItem{
		ID:            m.id(),
		ReservationID: arg.ReservationID,
		DishID:        arg.DishID,
		Quantity:      arg.Quantity,
		IsTakeaway:    arg.IsTakeaway,
		AppliedPrice:  arg.AppliedPrice,
	}
	m.orderItems[item.ID] = item
	return item, nil
}

func (m *memDB) GetReservationForUpdate(ctx context.Context, id int32) (database.Reservation, error) {
	if err := m.check("GetReservationForUpdate"); err != nil {
		return database.Reservation{}, err
	}
	r, ok := m.reservations[id]
	if !ok {
		return database.Reservation{}, pgx.ErrNoRows
	}
	return r, nil
}

func (m *memDB) CancelReservation(ctx context.Context, id int32) (database.Reservation, error) {
	if err := m.check("CancelReservation"); err != nil {
		return database.Reservation{}, err
	}
	r, ok := m.reservations[id]
	if !ok || r.Status == "cancelled" {
		return database.Reservation{}, pgx.ErrNoRows
	}
	r.Status = "cancelled"
	m.reservations[id] = r
	return r, nil
}

func (m *memDB) ListOrderItemsByReservation(ctx context.Context, reservationID int32) ([]database.OrderItem, error) {
	var items []database.OrderItem
	for _, oi := range m.orderItems {
		if oi.ReservationID == reservationID {
			items = append(items, oi)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

// --- Daily menus ---

func (m *memDB) menuCollides(id, cafeteriaID int32, date pgtype.Date) bool {
	for _, menu := range m.menus {
		if menu.ID != id && menu.CafeteriaID == cafeteriaID && menu.MenuDate.Time.Equal(date.Time) {
			return true
		}
	}
	return false
}

func (m *memDB) GetDailyMenu(ctx context.Context, id int32) (database.DailyMenu, error) {
	menu, ok := m.menus[id]
	if !ok {
		return database.DailyMenu{}, pgx.ErrNoRows
	}
	return menu, nil
}

func (m *memDB) GetDailyMenuByCafeteriaAndDate(ctx context.Context, arg database.GetDailyMenuByCafeteriaAndDateParams) (database.DailyMenu, error) {
	for _, menu := range m.menus {
		if menu.CafeteriaID == arg.CafeteriaID && menu.MenuDate.Time.Equal(arg.MenuDate.Time) {
			return menu, nil
		}
	}
	return database.DailyMenu{}, pgx.ErrNoRows
}

func (m *memDB) CreateDailyMenu(ctx context.Context, arg database.CreateDailyMenuParams) (database.DailyMenu, error) {
	if err := m.check("CreateDailyMenu"); err != nil {
		return database.DailyMenu{}, err
	}
	if _, ok := m.cafeterias[arg.CafeteriaID]; !ok {
		return database.DailyMenu{}, &pgconn.PgError{Code: "23503", ConstraintName: "daily_menus_cafeteria_id_fkey"}
	}
	if m.menuCollides(0, arg.CafeteriaID, arg.MenuDate) {
		return database.DailyMenu{}, &pgconn.PgError{Code: "23505", ConstraintName: menuUniqueConstraint}
	}
	menu := database.DailyMenu{ID: m.id(), CafeteriaID: arg.CafeteriaID, MenuDate: arg.MenuDate}
	m.menus[menu.ID] = menu
	return menu, nil
}

func (m *memDB) UpdateDailyMenu(ctx context.Context, arg database.UpdateDailyMenuParams) (database.DailyMenu, error) {
	menu, ok := m.menus[arg.ID]
	if !ok {
		return database.DailyMenu{}, pgx.ErrNoRows
	}
	if m.menuCollides(arg.ID, arg.CafeteriaID, arg.MenuDate) {
		return database.DailyMenu{}, &pgconn.PgError{Code: "23505", ConstraintName: menuUniqueConstraint}
	}
	menu.CafeteriaID, menu.MenuDate = arg.CafeteriaID, arg.MenuDate
	m.menus[menu.ID] = menu
	return menu, nil
}

func (m *memDB) deleteMenu(id int32) {
	delete(m.menus, id)
	for itemID, item := range m.menuItems {
		if item.MenuID == id {
			delete(m.menuItems, itemID)
		}
	}
}

func (m *memDB) DeleteDailyMenu(ctx context.Context, id int32) (int64, error) {
	if _, ok := m.menus[id]; !ok {
		return 0, nil
	}
	m.deleteMenu(id)
	return 1, nil
}

func (m *memDB) DeleteDailyMenuByCafeteriaAndDate(ctx context.Context, arg database.DeleteDailyMenuByCafeteriaAndDateParams) (int64, error) {
	if err := m.check("DeleteDailyMenuByCafeteriaAndDate"); err != nil {
		return 0, err
	}
	var n int64
	for id, menu := range m.menus {
		if menu.CafeteriaID == arg.CafeteriaID && menu.MenuDate.Time.Equal(arg.MenuDate.Time) {
			m.deleteMenu(id)
			n++
		}
	}
	return n, nil
}

func (m *memDB) CreateDailyMenuItem(ctx context.Context, arg database.CreateDailyMenuItemParams) (database.DailyMenuItem, error) {
	if err := m.check("CreateDailyMenuItem"); err != nil {
		return database.DailyMenuItem{}, err
	}
	if _, ok := m.dishes[arg.DishID]; !ok {
		return database.DailyMenuItem{}, &pgconn.PgError{Code: "23503", ConstraintName: "daily_menu_items_dish_id_fkey"}
	}
	item := database.DailyMenuItem{ID: m.id(), MenuID: arg.MenuID, DishID: arg.DishID, Role: arg.Role, DisplayOrder: arg.DisplayOrder}
	m.menuItems[item.ID] = item
	return item, nil
}

func (m *memDB) GetDailyMenuItem(ctx context.Context, id int32) (database.DailyMenuItem, error) {
	item, ok := m.menuItems[id]
	if !ok {
		return database.DailyMenuItem{}, pgx.ErrNoRows
	}
	return item, nil
}

func (m *memDB) UpdateDailyMenuItem(ctx context.Context, arg database.UpdateDailyMenuItemParams) (database.DailyMenuItem, error) {
	item, ok := m.menuItems[arg.ID]
	if !ok {
		return database.DailyMenuItem{}, pgx.ErrNoRows
	}
	item.DishID, item.Role, item.DisplayOrder = arg.DishID, arg.Role, arg.DisplayOrder
	m.menuItems[item.ID] = item
	return item, nil
}

func (m *memDB) DeleteDailyMenuItem(ctx context.Context, id int32) (database.DailyMenuItem, error) {
	item, ok := m.menuItems[id]
	if !ok {
		return database.DailyMenuItem{}, pgx.ErrNoRows
	}
	delete(m.menuItems, id)
	return item, nil
}

func (m *memDB) ListDailyMenuItemsByMenu(ctx context.Context, menuID int32) ([]database.DailyMenuItem, error) {
	items := []database.DailyMenuItem{}
	for _, item := range m.menuItems {
		if item.MenuID == menuID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].DisplayOrder != items[j].DisplayOrder {
			return items[i].DisplayOrder < items[j].DisplayOrder
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (m *memDB) ListMenuDishesForCafeteria(ctx context.Context, arg database.ListMenuDishesForCafeteriaParams) ([]database.ListMenuDishesForCafeteriaRow, error) {
	if err := m.check("ListMenuDishesForCafeteria"); err != nil {
		return nil, err
	}
	menu, err := m.GetDailyMenuByCafeteriaAndDate(ctx, database.GetDailyMenuByCafeteriaAndDateParams(arg))
	if err != nil {
		return []database.ListMenuDishesForCafeteriaRow{}, nil
	}
	items, _ := m.ListDailyMenuItemsByMenu(ctx, menu.ID)
	rows := make([]database.ListMenuDishesForCafeteriaRow, 0, len(items))
	for _, item := range items {
		d := m.dishes[item.DishID]
		rows = append(rows, database.ListMenuDishesForCafeteriaRow{
			ItemID:       item.ID,
			Role:         item.Role,
			DisplayOrder: item.DisplayOrder,
			DishID:       d.ID,
			Name:         d.Name,
			Description:  d.Description,
			Price:        d.Price,
			Category:     d.Category,
			IsAvailable:  d.IsAvailable,
		})
	}
	return rows, nil
}

// --- Event recorder ---

type recordingPublisher struct {
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.events = append(p.events, ev)
	return p.err
}

func (m *memDB) ListDailyMenus(ctx context.Context, arg database.ListDailyMenusParams) ([]database.DailyMenu, error) {
	menus := []database.DailyMenu{}
	for _, menu := range m.menus {
		if arg.CafeteriaID.Valid && menu.CafeteriaID != arg.CafeteriaID.Int32 {
			continue
		}
		if arg.MenuDate.Valid && !menu.MenuDate.Time.Equal(arg.MenuDate.Time) {
			continue
		}
		menus = append(menus, menu)
	}
	sort.Slice(menus, func(i, j int) bool { return menus[i].ID < menus[j].ID })
	return menus, nil
}

// --- Menu cache recorder ---

type recordingCache struct {
	entries     map[string][]MenuEntry
	invalidated []string
	flushes     int
	gets        int
}

func newRecordingCache() *recordingCache {
	return &recordingCache{entries: map[string][]MenuEntry{}}
}

func cacheKey(cafeteriaID int32, date time.Time) string {
	return fmt.Sprintf("%d:%s", cafeteriaID, date.Format(time.DateOnly))
}

func (c *recordingCache) GetMenu(_ context.Context, cafeteriaID int32, date time.Time) ([]MenuEntry, bool, error) {
	c.gets++
	e, ok := c.entries[cacheKey(cafeteriaID, date)]
	return e, ok, nil
}

func (c *recordingCache) SetMenu(_ context.Context, cafeteriaID int32, date time.Time, entries []MenuEntry) error {
	c.entries[cacheKey(cafeteriaID, date)] = entries
	return nil
}

func (c *recordingCache) InvalidateMenu(_ context.Context, cafeteriaID int32, date time.Time) error {
	key := cacheKey(cafeteriaID, date)
	delete(c.entries, key)
	c.invalidated = append(c.invalidated, key)
	return nil
}

func (c *recordingCache) InvalidateAll(context.Context) error {
	c.entries = map[string][]MenuEntry{}
	c.flushes++
	return nil
}
