package domain

import (
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/tamthien006/vexemphim/internal/cache"
	"github.com/tamthien006/vexemphim/internal/model"
	"github.com/tamthien006/vexemphim/internal/repository"
)

// fakeClock is a controllable clock shared by the service under test and
// the in-memory ledger, so hold expiry can be advanced deterministically.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{t: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeShowingRepo struct {
	mu       sync.Mutex
	showings map[uint]model.Showing
	nextID   uint
}

var _ repository.ShowingRepo = (*fakeShowingRepo)(nil)

func newFakeShowingRepo() *fakeShowingRepo {
	return &fakeShowingRepo{showings: make(map[uint]model.Showing), nextID: 1}
}

func (r *fakeShowingRepo) WithTx(tx *gorm.DB) repository.ShowingRepo { return r }

func (r *fakeShowingRepo) Create(showing *model.Showing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if showing.ID == 0 {
		showing.ID = r.nextID
		r.nextID++
	}
	r.showings[showing.ID] = *showing
	return nil
}

func (r *fakeShowingRepo) GetByID(id uint) (*model.Showing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	showing, ok := r.showings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &showing, nil
}

func (r *fakeShowingRepo) FindOverlapping(roomID uint, start, end time.Time) (*model.Showing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sh := range r.showings {
		if sh.RoomID == roomID && sh.Status != model.ShowingCancelled &&
			sh.StartAt.Before(end) && sh.EndAt.After(start) {
			found := sh
			return &found, nil
		}
	}
	return nil, nil
}

func (r *fakeShowingRepo) ListActiveByRoomAndDay(roomID uint, dayStart, dayEnd time.Time) ([]model.Showing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Showing
	for _, sh := range r.showings {
		if sh.RoomID == roomID && sh.Status != model.ShowingCancelled &&
			sh.StartAt.Before(dayEnd) && sh.EndAt.After(dayStart) {
			out = append(out, sh)
		}
	}
	return out, nil
}

func (r *fakeShowingRepo) UpdateStatus(id uint, status model.ShowingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sh, ok := r.showings[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	sh.Status = status
	r.showings[id] = sh
	return nil
}

func (r *fakeShowingRepo) SetFull(id uint, full bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sh, ok := r.showings[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	sh.IsFull = full
	r.showings[id] = sh
	return nil
}

type fakeReservationRepo struct {
	mu           sync.Mutex
	reservations map[string]*model.Reservation
}

var _ repository.ReservationRepo = (*fakeReservationRepo)(nil)

func newFakeReservationRepo() *fakeReservationRepo {
	return &fakeReservationRepo{reservations: make(map[string]*model.Reservation)}
}

func (r *fakeReservationRepo) WithTx(tx *gorm.DB) repository.ReservationRepo { return r }

func (r *fakeReservationRepo) Create(res *model.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reservations[res.PublicID] = res
	return nil
}

func (r *fakeReservationRepo) GetByPublicID(publicID string) (*model.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.reservations[publicID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return res, nil
}

func (r *fakeReservationRepo) Save(res *model.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reservations[res.PublicID] = res
	return nil
}

func (r *fakeReservationRepo) CountActiveSeats(showingID uint, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, res := range r.reservations {
		if res.ShowingID != showingID {
			continue
		}
		switch res.Status {
		case model.ReservationConfirmed:
			count += len(res.Seats)
		case model.ReservationPending:
			if res.HoldExpiresAt.After(now) {
				count += len(res.Seats)
			}
		}
	}
	return count, nil
}

func (r *fakeReservationRepo) CountPaidByCustomer(customerID uint) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, res := range r.reservations {
		if res.CustomerID == customerID && res.PaymentStatus == model.PaymentCompleted {
			count++
		}
	}
	return count, nil
}

func (r *fakeReservationRepo) CountByCustomerAndPromotion(customerID uint, code string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, res := range r.reservations {
		if res.CustomerID == customerID && res.PromotionCode == code &&
			res.Status != model.ReservationCancelled {
			count++
		}
	}
	return count, nil
}

type fakeSeatRepo struct {
	seats []model.Seat
}

var _ repository.SeatRepo = (*fakeSeatRepo)(nil)

func (r *fakeSeatRepo) GetByRoomAndCodes(roomID uint, codes []string) ([]model.Seat, error) {
	wanted := make(map[string]bool, len(codes))
	for _, code := range codes {
		wanted[code] = true
	}
	var out []model.Seat
	for _, seat := range r.seats {
		if seat.RoomID == roomID && wanted[seat.Code] {
			out = append(out, seat)
		}
	}
	return out, nil
}

type fakeRoomRepo struct {
	rooms map[uint]model.Room
}

var _ repository.RoomRepo = (*fakeRoomRepo)(nil)

func (r *fakeRoomRepo) GetByID(id uint) (*model.Room, error) {
	room, ok := r.rooms[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &room, nil
}

type fakeMovieRepo struct {
	movies map[uint]model.Movie
}

var _ repository.MovieRepo = (*fakeMovieRepo)(nil)

func (r *fakeMovieRepo) GetByID(id uint) (*model.Movie, error) {
	movie, ok := r.movies[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &movie, nil
}

type fakePromotionRepo struct {
	mu         sync.Mutex
	promotions map[string]*model.Promotion

	// injectable failures for the durable store
	getErr       error
	incrementErr error
}

var _ repository.PromotionRepo = (*fakePromotionRepo)(nil)

func newFakePromotionRepo(promos ...*model.Promotion) *fakePromotionRepo {
	r := &fakePromotionRepo{promotions: make(map[string]*model.Promotion)}
	for _, p := range promos {
		r.promotions[p.Code] = p
	}
	return r
}

func (r *fakePromotionRepo) WithTx(tx *gorm.DB) repository.PromotionRepo { return r }

func (r *fakePromotionRepo) Create(promotion *model.Promotion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.promotions[promotion.Code] = promotion
	return nil
}

func (r *fakePromotionRepo) GetByCode(code string) (*model.Promotion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	promo, ok := r.promotions[code]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *promo
	return &copied, nil
}

func (r *fakePromotionRepo) ListAll() ([]model.Promotion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Promotion
	for _, p := range r.promotions {
		out = append(out, *p)
	}
	return out, nil
}

func (r *fakePromotionRepo) IncrementUsage(code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.incrementErr != nil {
		return r.incrementErr
	}
	if promo, ok := r.promotions[code]; ok {
		promo.CurrentUses++
	}
	return nil
}

// memoryLedger mirrors the redis scripts' semantics in memory: a single
// mutex makes every operation a test-and-set, claims carry an expiry from
// the shared fake clock, and promotion use is marker-guarded.
type memoryLedger struct {
	mu     sync.Mutex
	now    func() time.Time
	claims map[uint]map[string]seatClaim

	promoUses    map[string]int
	promoMarkers map[string]bool
}

type seatClaim struct {
	owner     string
	expiresAt time.Time
	permanent bool
}

var _ BookingLedger = (*memoryLedger)(nil)

func newMemoryLedger(now func() time.Time) *memoryLedger {
	return &memoryLedger{
		now:          now,
		claims:       make(map[uint]map[string]seatClaim),
		promoUses:    make(map[string]int),
		promoMarkers: make(map[string]bool),
	}
}

func (l *memoryLedger) live(c seatClaim) bool {
	return c.permanent || c.expiresAt.After(l.now())
}

func (l *memoryLedger) ClaimSeats(showingID uint, reservationID string, seatCodes []string, holdTTL time.Duration) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	byCode := l.claims[showingID]
	if byCode == nil {
		byCode = make(map[string]seatClaim)
		l.claims[showingID] = byCode
	}

	var conflicts []string
	for _, code := range seatCodes {
		if c, ok := byCode[code]; ok && l.live(c) && c.owner != reservationID {
			conflicts = append(conflicts, code)
		}
	}
	if len(conflicts) > 0 {
		return conflicts, nil
	}
	for _, code := range seatCodes {
		byCode[code] = seatClaim{owner: reservationID, expiresAt: l.now().Add(holdTTL)}
	}
	return nil, nil
}

func (l *memoryLedger) PersistSeats(showingID uint, reservationID string, seatCodes []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	byCode := l.claims[showingID]
	for _, code := range seatCodes {
		c, ok := byCode[code]
		if !ok || !l.live(c) || c.owner != reservationID {
			return cache.ErrHoldLost
		}
	}
	for _, code := range seatCodes {
		c := byCode[code]
		c.permanent = true
		byCode[code] = c
	}
	return nil
}

func (l *memoryLedger) ReleaseSeats(showingID uint, reservationID string, seatCodes []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	byCode := l.claims[showingID]
	for _, code := range seatCodes {
		if c, ok := byCode[code]; ok && c.owner == reservationID {
			delete(byCode, code)
		}
	}
	return nil
}

func (l *memoryLedger) UsePromotion(code, reservationID string, maxUses int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	marker := code + ":" + reservationID
	if l.promoMarkers[marker] {
		return nil
	}
	if maxUses > 0 && l.promoUses[code] >= maxUses {
		return cache.ErrPromotionExhausted
	}
	l.promoUses[code]++
	l.promoMarkers[marker] = true
	return nil
}

func (l *memoryLedger) ReleasePromotionUse(code, reservationID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	marker := code + ":" + reservationID
	if !l.promoMarkers[marker] {
		return nil
	}
	delete(l.promoMarkers, marker)
	if l.promoUses[code] > 0 {
		l.promoUses[code]--
	}
	return nil
}

// recordingPublisher captures emitted events for assertions.
type recordingPublisher struct {
	mu           sync.Mutex
	stateChanges []string
	occupancy    []Occupancy
	promoUses    []string
}

var _ EventPublisher = (*recordingPublisher)(nil)

func (p *recordingPublisher) OccupancyChanged(showingID uint, booked, capacity int, isFull bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.occupancy = append(p.occupancy, Occupancy{Booked: booked, Capacity: capacity, IsFull: isFull})
}

func (p *recordingPublisher) ReservationStateChanged(reservationID string, oldState, newState model.ReservationStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stateChanges = append(p.stateChanges, string(oldState)+"->"+string(newState))
}

func (p *recordingPublisher) PromotionUsed(code, reservationID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.promoUses = append(p.promoUses, code)
}

func (p *recordingPublisher) lastOccupancy() Occupancy {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.occupancy) == 0 {
		return Occupancy{}
	}
	return p.occupancy[len(p.occupancy)-1]
}
