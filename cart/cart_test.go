package cart

import (
	"context"
	"errors"
	"math"
	"os"
	"sync"
	"testing"

	"storefront/catalog"
	"storefront/database"
	"storefront/models"
	"storefront/session"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	var err error
	testDB, err = database.OpenSQLite("file:cart_test?mode=memory&cache=shared")
	if err != nil {
		panic("failed to connect to test database: " + err.Error())
	}
	if err := database.CreateSQLiteTables(testDB); err != nil {
		panic("failed to migrate test database: " + err.Error())
	}
	os.Exit(m.Run())
}

func freshDB() *gorm.DB {
	database.ResetSQLite(testDB)
	return testDB
}

func seedProduct(t *testing.T, db *gorm.DB, name, price string) models.Product {
	t.Helper()
	p := models.Product{Name: name, Price: decimal.RequireFromString(price)}
	if err := db.Create(&p).Error; err != nil {
		t.Fatal(err)
	}
	return p
}

func sessionItems(t *testing.T, s *session.Session) map[string]int {
	t.Helper()
	items := map[string]int{}
	if _, err := s.Get(SessionKey, &items); err != nil {
		t.Fatal(err)
	}
	return items
}

func TestPersistedAddIsIdempotentPerProduct(t *testing.T) {
	db := freshDB()
	ctx := context.Background()
	p := seedProduct(t, db, "Tea", "3.00")

	c, err := ForUser(ctx, db, 1)
	if err != nil {
		t.Fatalf("ForUser: %v", err)
	}
	if err := c.Add(ctx, p.ID, 5); err != nil {
		t.Fatal(err)
	}
	if err := c.Add(ctx, p.ID, 5); err != nil {
		t.Fatal(err)
	}

	var items []models.CartItem
	db.Where("cart_id = ?", c.ID()).Find(&items)
	if len(items) != 1 {
		t.Fatalf("expected exactly one line, got %d", len(items))
	}
	if items[0].Quantity != 2 {
		t.Errorf("expected quantity 2, got %d", items[0].Quantity)
	}
}

func TestForUserReusesCart(t *testing.T) {
	db := freshDB()
	ctx := context.Background()

	first, err := ForUser(ctx, db, 4)
	if err != nil {
		t.Fatal(err)
	}
	second, err := ForUser(ctx, db, 4)
	if err != nil {
		t.Fatal(err)
	}
	if first.ID() != second.ID() {
		t.Errorf("expected the same cart, got %d and %d", first.ID(), second.ID())
	}
}

func TestPersistedUpdateRemoveClear(t *testing.T) {
	db := freshDB()
	ctx := context.Background()
	a := seedProduct(t, db, "A", "1.50")
	b := seedProduct(t, db, "B", "2.00")

	c, _ := ForUser(ctx, db, 1)
	_ = c.Add(ctx, a.ID, 1)
	_ = c.Add(ctx, b.ID, 1)

	if err := c.Update(ctx, a.ID, 4); err != nil {
		t.Fatal(err)
	}
	total, _ := c.TotalQuantity(ctx)
	if total != 5 {
		t.Errorf("expected total quantity 5, got %d", total)
	}

	lines, err := c.Lines(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 || lines[0].Product == nil || !Total(lines).Equal(decimal.RequireFromString("8.00")) {
		t.Errorf("unexpected lines %+v", lines)
	}

	if err := c.Update(ctx, b.ID, 0); err != nil {
		t.Fatal(err)
	}
	if err := c.Update(ctx, b.ID, 3); !errors.Is(err, ErrLineNotFound) {
		t.Errorf("expected ErrLineNotFound, got %v", err)
	}
	_ = c.Remove(ctx, b.ID)
	total, _ = c.TotalQuantity(ctx)
	if total != 4 {
		t.Errorf("expected total quantity 4 after removing B, got %d", total)
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	total, _ = c.TotalQuantity(ctx)
	if total != 0 {
		t.Errorf("expected empty cart, got %d", total)
	}
}

func TestPersistedWithTxBindsToTransaction(t *testing.T) {
	db := freshDB()
	ctx := context.Background()
	p := seedProduct(t, db, "A", "1.00")

	c, _ := ForUser(ctx, db, 1)
	_ = c.Add(ctx, p.ID, 1)

	_ = db.Transaction(func(tx *gorm.DB) error {
		locked, err := c.WithTx(tx)
		if err != nil {
			t.Fatalf("WithTx: %v", err)
		}
		if err := locked.Clear(ctx); err != nil {
			t.Fatal(err)
		}
		return gorm.ErrInvalidTransaction
	})

	total, _ := c.TotalQuantity(ctx)
	if total != 1 {
		t.Errorf("expected rollback to keep the line, got quantity %d", total)
	}
}

func TestSessionQuantityConservation(t *testing.T) {
	ctx := context.Background()
	s := session.New("s")
	c := NewSessionCart(s)

	_ = c.Add(ctx, 7, 2)
	_ = c.Add(ctx, 7, 3)
	_ = c.Add(ctx, 9, 1)
	if got := sessionItems(t, s); got["7"] != 5 || got["9"] != 1 {
		t.Fatalf("unexpected items %v", got)
	}

	_ = c.Add(ctx, 7, -5)
	if _, ok := sessionItems(t, s)["7"]; ok {
		t.Error("expected product 7 to be removed when quantity reaches zero")
	}

	_ = c.Update(ctx, 9, 4)
	_ = c.Update(ctx, 11, 0)
	got := sessionItems(t, s)
	if got["9"] != 4 || len(got) != 1 {
		t.Errorf("unexpected items after update %v", got)
	}

	total, _ := c.TotalQuantity(ctx)
	if total != 4 {
		t.Errorf("expected total quantity 4, got %d", total)
	}

	_ = c.Remove(ctx, 9)
	_ = c.Remove(ctx, 9)
	if got := sessionItems(t, s); len(got) != 0 {
		t.Errorf("expected empty mapping, got %v", got)
	}
}

func TestSessionAddZeroIsNoop(t *testing.T) {
	s := session.New("s")
	c := NewSessionCart(s)

	_ = c.Add(context.Background(), 7, 0)
	if s.Modified() {
		t.Error("adding zero should not touch the session")
	}
}

func TestSessionLinesSkipsMalformedKeys(t *testing.T) {
	s := session.New("s")
	_ = s.Set(SessionKey, map[string]int{"7": 2, "abc": 1, "3": 1, "0": 4})

	lines, err := NewSessionCart(s).Lines(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 || lines[0].ProductID != 3 || lines[1].ProductID != 7 {
		t.Errorf("unexpected lines %+v", lines)
	}
}

func TestSessionClear(t *testing.T) {
	ctx := context.Background()
	s := session.New("s")
	c := NewSessionCart(s)
	_ = c.Add(ctx, 7, 2)

	if err := c.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if got := sessionItems(t, s); len(got) != 0 {
		t.Errorf("expected empty mapping, got %v", got)
	}
}

func TestResolveSeparatesDanglingLines(t *testing.T) {
	db := freshDB()
	live := seedProduct(t, db, "Live", "25.00")
	gone := seedProduct(t, db, "Gone", "10.00")
	db.Delete(&gone)

	lines := []Line{{ProductID: live.ID, Quantity: 2}, {ProductID: gone.ID, Quantity: 1}}
	resolved, dangling, err := Resolve(context.Background(), catalog.New(db), lines)
	if err != nil {
		t.Fatal(err)
	}
	if len(resolved) != 1 || resolved[0].Product.Name != "Live" {
		t.Errorf("unexpected resolved lines %+v", resolved)
	}
	if len(dangling) != 1 || dangling[0] != gone.ID {
		t.Errorf("expected dangling %d, got %v", gone.ID, dangling)
	}
	if !Total(resolved).Equal(decimal.RequireFromString("50.00")) {
		t.Errorf("expected total 50.00, got %s", Total(resolved))
	}
}

func TestParseQuantity(t *testing.T) {
	cases := map[string]int{"": 1, "abc": 1, "3": 3, " 2 ": 2, "-1": -1, "9999": MaxQuantity}
	for in, want := range cases {
		got, err := ParseQuantity(in)
		if err != nil || got != want {
			t.Errorf("ParseQuantity(%q) = %d, %v, want %d", in, got, err, want)
		}
	}
	for _, in := range []string{"10000", "-10000", "9223372036854775807", "99999999999999999999"} {
		if _, err := ParseQuantity(in); !errors.Is(err, ErrQuantityOutOfRange) {
			t.Errorf("ParseQuantity(%q): expected ErrQuantityOutOfRange, got %v", in, err)
		}
	}
}

func TestSessionAddRejectsHugeQuantities(t *testing.T) {
	ctx := context.Background()
	s := session.New("s")
	c := NewSessionCart(s)

	if err := c.Add(ctx, 7, math.MaxInt); !errors.Is(err, ErrQuantityOutOfRange) {
		t.Fatalf("expected ErrQuantityOutOfRange, got %v", err)
	}
	if err := c.Add(ctx, 7, MaxQuantity); err != nil {
		t.Fatal(err)
	}
	if err := c.Add(ctx, 8, 1); err != nil {
		t.Fatal(err)
	}
	// A line at the cap stays put instead of wrapping or vanishing.
	if err := c.Add(ctx, 7, 1); !errors.Is(err, ErrQuantityOutOfRange) {
		t.Errorf("expected ErrQuantityOutOfRange at the cap, got %v", err)
	}
	if err := c.Update(ctx, 8, MaxQuantity+1); !errors.Is(err, ErrQuantityOutOfRange) {
		t.Errorf("expected ErrQuantityOutOfRange on update, got %v", err)
	}

	lines, _ := c.Lines(ctx)
	total, err := c.TotalQuantity(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 || lines[0].Quantity != MaxQuantity || lines[1].Quantity != 1 {
		t.Errorf("unexpected lines %+v", lines)
	}
	if total != MaxQuantity+1 {
		t.Errorf("expected total %d, got %d", MaxQuantity+1, total)
	}
}

func TestSessionTotalQuantityOverflow(t *testing.T) {
	s := session.New("s")
	_ = s.Set(SessionKey, map[string]int{"7": math.MaxInt, "8": 1})

	if _, err := NewSessionCart(s).TotalQuantity(context.Background()); !errors.Is(err, ErrQuantityOutOfRange) {
		t.Errorf("expected ErrQuantityOutOfRange, got %v", err)
	}
}

func TestPersistedAddSaturatesAtCap(t *testing.T) {
	db := freshDB()
	ctx := context.Background()
	p := seedProduct(t, db, "Tea", "3.00")
	c, _ := ForUser(ctx, db, 1)

	db.Create(&models.CartItem{CartID: c.ID(), ProductID: p.ID, Quantity: MaxQuantity})
	if err := c.Add(ctx, p.ID, 1); err != nil {
		t.Fatal(err)
	}
	total, _ := c.TotalQuantity(ctx)
	if total != MaxQuantity {
		t.Errorf("expected quantity to stay at %d, got %d", MaxQuantity, total)
	}
	if err := c.Update(ctx, p.ID, MaxQuantity+1); !errors.Is(err, ErrQuantityOutOfRange) {
		t.Errorf("expected ErrQuantityOutOfRange on update, got %v", err)
	}
}

func TestPersistedConcurrentFirstAdds(t *testing.T) {
	db := freshDB()
	ctx := context.Background()
	p := seedProduct(t, db, "Tea", "3.00")
	if _, err := ForUser(ctx, db, 1); err != nil {
		t.Fatal(err)
	}

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := ForUser(ctx, db, 1)
			if err == nil {
				err = c.Add(ctx, p.ID, 1)
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("concurrent add failed: %v", err)
		}
	}

	var items []models.CartItem
	db.Find(&items)
	if len(items) != 1 || items[0].Quantity != workers {
		t.Errorf("expected one line with quantity %d, got %+v", workers, items)
	}
}
