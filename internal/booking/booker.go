// Package booking drives the reservation flow: log in past the captcha,
// walk to the configured facility, and grab a slot the moment the date
// opens. The flow mirrors how a person uses the site; every interaction
// goes through the humanizer.
package booking

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"gymbook/internal/browser"
	"gymbook/internal/captcha"
	"gymbook/internal/config"
	"gymbook/internal/schedule"
	"gymbook/internal/slotguard"
)

// successMarkers are the phrases the site shows on a confirmed booking.
var successMarkers = []string{"预约成功", "您已经预约成功"}

// ErrorScreenshot is where debug mode saves the page on failure.
const ErrorScreenshot = "error_screenshot.png"

// Params wires a Booker.
type Params struct {
	Config    *config.Config
	Selectors config.Selectors
	Session   *browser.Session
	Humanizer *browser.Humanizer
	Solver    captcha.Solver
	Logger    *zap.Logger

	// BookingTime is the release moment in UTC; zero means the run is
	// unscheduled and retries until cancelled.
	BookingTime time.Time

	// Rand drives slot choice; nil gets a time-seeded source.
	Rand *rand.Rand
}

// Booker executes one reservation run.
type Booker struct {
	cfg         *config.Config
	sel         config.Selectors
	sess        *browser.Session
	human       *browser.Humanizer
	solver      captcha.Solver
	logger      *zap.Logger
	bookingTime time.Time
	rng         *rand.Rand
	retries     int
}

// New creates a Booker.
func New(p Params) *Booker {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	rng := p.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Booker{
		cfg:         p.Config,
		sel:         p.Selectors,
		sess:        p.Session,
		human:       p.Humanizer,
		solver:      p.Solver,
		logger:      logger,
		bookingTime: p.BookingTime,
		rng:         rng,
	}
}

// Retries reports how many reservation attempts ran.
func (b *Booker) Retries() int {
	return b.retries
}

// Run executes the full flow. The login and navigation phase runs once;
// the reservation phase (date, slot, confirm) retries after a page
// reload until success, cancellation, or the booking window expiring.
func (b *Booker) Run(ctx context.Context) error {
	b.logger.Info("starting reservation run",
		zap.String("campus", b.cfg.CampusName),
		zap.String("facility", b.cfg.FacilityName),
		zap.String("date", b.cfg.DateNumber),
		zap.String("slot", b.cfg.TimeSlot))

	if err := b.openSite(ctx); err != nil {
		return b.fail(ctx, err)
	}
	if err := b.login(ctx); err != nil {
		return b.fail(ctx, err)
	}
	if err := b.submitLogin(ctx); err != nil {
		return b.fail(ctx, err)
	}
	b.closeNotification(ctx)
	if err := b.selectCampus(ctx); err != nil {
		return b.fail(ctx, err)
	}
	if err := b.selectFacility(ctx); err != nil {
		return b.fail(ctx, err)
	}

	dctx := ctx
	if !b.bookingTime.IsZero() {
		deadline := schedule.Deadline(b.bookingTime)
		b.logger.Info("reservation deadline set",
			zap.String("deadline", schedule.FormatBeijing(deadline)))
		var cancel context.CancelFunc
		dctx, cancel = context.WithDeadline(ctx, deadline)
		defer cancel()
	}

	attempt := func() error {
		b.retries++
		b.logger.Info("reservation attempt", zap.Int("attempt", b.retries))
		if err := b.reserveOnce(dctx); err != nil {
			b.logger.Warn("reservation attempt failed",
				zap.Int("attempt", b.retries), zap.Error(err))
			if rerr := b.sess.Reload(dctx); rerr != nil {
				b.logger.Warn("reload before retry failed", zap.Error(rerr))
			}
			_ = b.human.Delay(dctx, 2*time.Second, 3*time.Second)
			return err
		}
		return nil
	}

	policy := backoff.WithContext(backoff.NewConstantBackOff(2*time.Second), dctx)
	if err := backoff.Retry(attempt, policy); err != nil {
		if dctx.Err() != nil && ctx.Err() == nil {
			return b.fail(ctx, fmt.Errorf("%w after %d attempts", ErrBookingWindowExpired, b.retries))
		}
		return b.fail(ctx, err)
	}

	b.logger.Info("reservation confirmed", zap.Int("attempts", b.retries))
	return nil
}

// reserveOnce runs the retryable phase: date, slot, confirm, verify.
func (b *Booker) reserveOnce(ctx context.Context) error {
	if err := b.selectDate(ctx); err != nil {
		return err
	}
	if err := b.selectTimeSlot(ctx); err != nil {
		return err
	}
	if err := b.confirm(ctx); err != nil {
		return err
	}
	return b.checkSuccess(ctx)
}

// openSite loads the site and lingers while the bot filter settles.
func (b *Booker) openSite(ctx context.Context) error {
	b.logger.Info("opening reservation site", zap.String("url", b.cfg.BaseURL))

	if err := b.sess.Navigate(ctx, b.cfg.BaseURL); err != nil {
		return err
	}
	if err := b.human.Delay(ctx, 2*time.Second, 4*time.Second); err != nil {
		return err
	}

	if _, err := b.page(ctx, 30*time.Second).ElementX(b.sel.UsernameInput); err != nil {
		return fmt.Errorf("login form not found: %w", err)
	}

	// The site runs a browser check after load; rushing past it gets
	// the session flagged.
	return b.human.Delay(ctx, 5*time.Second, 8*time.Second)
}

// login types the credentials and the captcha answer.
func (b *Booker) login(ctx context.Context) error {
	b.logger.Info("entering credentials", zap.String("username", b.cfg.Username))

	userEl, err := b.page(ctx, 10*time.Second).ElementX(b.sel.UsernameInput)
	if err != nil {
		return fmt.Errorf("username input: %w", err)
	}
	if err := b.human.Type(ctx, userEl, b.cfg.Username); err != nil {
		return fmt.Errorf("type username: %w", err)
	}

	passEl, err := b.page(ctx, 10*time.Second).ElementX(b.sel.PasswordInput)
	if err != nil {
		return fmt.Errorf("password input: %w", err)
	}
	if err := b.human.Type(ctx, passEl, b.cfg.Password); err != nil {
		return fmt.Errorf("type password: %w", err)
	}

	return b.solveCaptcha(ctx)
}

// solveCaptcha screenshots the captcha image, asks the solver, and types
// the answer.
func (b *Booker) solveCaptcha(ctx context.Context) error {
	imgEl, err := b.page(ctx, 10*time.Second).ElementX(b.sel.CaptchaImage)
	if err != nil {
		return fmt.Errorf("captcha image: %w", err)
	}
	if err := b.human.Delay(ctx, 1*time.Second, 2*time.Second); err != nil {
		return err
	}

	png, err := imgEl.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
	if err != nil {
		return fmt.Errorf("captcha screenshot: %w", err)
	}

	code, err := b.solver.Solve(ctx, png)
	if err != nil {
		return fmt.Errorf("solve captcha (%s): %w", b.solver.Name(), err)
	}
	b.logger.Info("captcha solved", zap.String("solver", b.solver.Name()), zap.String("code", code))

	inputEl, err := b.page(ctx, 10*time.Second).ElementX(b.sel.CaptchaInput)
	if err != nil {
		return fmt.Errorf("captcha input: %w", err)
	}
	return b.human.Type(ctx, inputEl, code)
}

// submitLogin clicks the login button and waits out the redirect.
func (b *Booker) submitLogin(ctx context.Context) error {
	b.logger.Info("submitting login")

	btn, err := b.page(ctx, 10*time.Second).ElementX(b.sel.LoginButton)
	if err != nil {
		return fmt.Errorf("login button: %w", err)
	}
	if err := b.human.Click(ctx, b.sess.Page(), btn); err != nil {
		return fmt.Errorf("click login: %w", err)
	}
	return b.human.Delay(ctx, 3*time.Second, 5*time.Second)
}

// closeNotification dismisses the post-login overlay. The overlay is
// cosmetic; nothing here is allowed to fail the run.
func (b *Booker) closeNotification(ctx context.Context) {
	closeBtn, err := b.page(ctx, 10*time.Second).Element(b.sel.NotificationClose)
	if err == nil {
		if err := b.human.Click(ctx, b.sess.Page(), closeBtn); err == nil {
			b.logger.Info("notification dismissed")
			_ = b.human.Delay(ctx, 2*time.Second, 3*time.Second)
			return
		}
	}

	b.logger.Warn("notification close button not found, reloading", zap.Error(err))
	if err := b.sess.Reload(ctx); err != nil {
		b.logger.Warn("reload failed", zap.Error(err))
		return
	}
	_ = b.human.Delay(ctx, 3*time.Second, 5*time.Second)

	closeBtn, err = b.page(ctx, 5*time.Second).Element(b.sel.NotificationClose)
	if err != nil {
		b.logger.Warn("no notification after reload, continuing", zap.Error(err))
		return
	}
	if err := b.human.Click(ctx, b.sess.Page(), closeBtn); err == nil {
		b.logger.Info("notification dismissed after reload")
		_ = b.human.Delay(ctx, 2*time.Second, 3*time.Second)
	}
}

func (b *Booker) selectCampus(ctx context.Context) error {
	b.logger.Info("selecting campus", zap.String("campus", b.cfg.CampusName))
	if err := b.clickByText(ctx, b.sel.CampusName, b.cfg.CampusName); err != nil {
		return fmt.Errorf("%w: %s", ErrCampusNotFound, b.cfg.CampusName)
	}
	return nil
}

func (b *Booker) selectFacility(ctx context.Context) error {
	b.logger.Info("selecting facility", zap.String("facility", b.cfg.FacilityName))
	if err := b.clickByText(ctx, b.sel.FacilityName, b.cfg.FacilityName); err != nil {
		return fmt.Errorf("%w: %s", ErrFacilityNotFound, b.cfg.FacilityName)
	}
	return nil
}

// selectDate clicks the configured date, reloading the page every second
// until it appears. Dates show up the moment the release opens, so this
// loop is what sits on the line at release time.
func (b *Booker) selectDate(ctx context.Context) error {
	b.logger.Info("selecting date", zap.String("date", b.cfg.DateNumber))

	tries := 0
	find := func() error {
		tries++
		if err := b.clickByText(ctx, b.sel.DateNumber, b.cfg.DateNumber); err == nil {
			b.logger.Info("date selected", zap.Int("tries", tries))
			return nil
		}
		b.logger.Debug("date not present yet, reloading", zap.Int("tries", tries))
		if err := b.sess.Reload(ctx); err != nil {
			return fmt.Errorf("reload while waiting for date: %w", err)
		}
		return fmt.Errorf("date %s not present", b.cfg.DateNumber)
	}

	policy := backoff.WithContext(backoff.NewConstantBackOff(time.Second), ctx)
	return backoff.Retry(find, policy)
}

// selectTimeSlot picks a bookable button in the configured slot's row,
// falling back to any bookable button on the page. Candidates go through
// the decoy filter before the random pick.
func (b *Booker) selectTimeSlot(ctx context.Context) error {
	b.logger.Info("selecting time slot", zap.String("slot", b.cfg.TimeSlot))
	page := b.sess.Page().Context(ctx)

	rows, err := page.ElementsX(b.sel.TimeSlotRowFor(b.cfg.TimeSlot))
	if err != nil {
		return fmt.Errorf("find slot rows: %w", err)
	}

	for i, row := range rows {
		buttons, err := row.Elements(b.sel.BookableSlot)
		if err != nil || len(buttons) == 0 {
			continue
		}
		b.logger.Debug("bookable buttons in row",
			zap.Int("row", i+1), zap.Int("count", len(buttons)))
		if picked := b.pickButton(buttons); picked != nil {
			if err := b.human.Click(ctx, b.sess.Page(), picked); err != nil {
				return fmt.Errorf("click slot button: %w", err)
			}
			b.logger.Info("slot selected", zap.String("slot", b.cfg.TimeSlot))
			return b.human.Delay(ctx, 2*time.Second, 3*time.Second)
		}
	}

	// The row may render without its buttons under load; any bookable
	// button on the page is still the right facility and date.
	b.logger.Info("no bookable button in the slot row, scanning page")
	buttons, err := page.Elements(b.sel.BookableSlot)
	if err == nil && len(buttons) > 0 {
		if picked := b.pickButton(buttons); picked != nil {
			if err := b.human.Click(ctx, b.sess.Page(), picked); err != nil {
				return fmt.Errorf("click slot button: %w", err)
			}
			b.logger.Info("slot selected from page-wide scan")
			return b.human.Delay(ctx, 2*time.Second, 3*time.Second)
		}
	}

	return fmt.Errorf("%w: %s", ErrSlotUnavailable, b.cfg.TimeSlot)
}

// pickButton filters candidates through the decoy rules and returns a
// random survivor, or nil when none survive.
func (b *Booker) pickButton(buttons rod.Elements) *rod.Element {
	candidates := make([]slotguard.Candidate, 0, len(buttons))
	byID := make(map[string]*rod.Element, len(buttons))

	for i, el := range buttons {
		id := fmt.Sprintf("slot_%d", i)
		c := slotguard.Candidate{
			ID:     id,
			Styles: elementStyles(el),
			Attrs:  elementAttrs(el),
		}
		if shape, err := el.Shape(); err == nil && shape != nil && len(shape.Quads) > 0 {
			quad := shape.Quads[0]
			c.X = quad[0]
			c.Y = quad[1]
			c.Width = quad[2] - quad[0]
			c.Height = quad[5] - quad[1]
		}
		candidates = append(candidates, c)
		byID[id] = el
	}

	pass, verdicts, err := slotguard.Filter(candidates)
	if err != nil {
		b.logger.Warn("slot filtering failed, picking unfiltered", zap.Error(err))
		return buttons[b.rng.Intn(len(buttons))]
	}
	for _, v := range verdicts {
		if v.Decoy {
			b.logger.Warn("decoy slot button skipped",
				zap.String("id", v.ID), zap.Strings("reasons", v.Reasons))
		}
	}
	if len(pass) == 0 {
		return nil
	}

	chosen := pass[b.rng.Intn(len(pass))]
	b.logger.Info("slot button chosen",
		zap.String("id", chosen.ID), zap.Int("survivors", len(pass)))
	return byID[chosen.ID]
}

// confirm clicks the book button and waits for the result dialog.
func (b *Booker) confirm(ctx context.Context) error {
	b.logger.Info("confirming reservation")

	btn, err := b.page(ctx, 10*time.Second).ElementX(b.sel.BookButton)
	if err != nil {
		return fmt.Errorf("book button: %w", err)
	}
	if err := b.human.Click(ctx, b.sess.Page(), btn); err != nil {
		return fmt.Errorf("click book button: %w", err)
	}

	if _, err := b.page(ctx, 15*time.Second).Element(b.sel.ModalContent); err != nil {
		b.logger.Warn("result dialog did not appear", zap.Error(err))
	}
	return b.human.Delay(ctx, 2*time.Second, 3*time.Second)
}

// checkSuccess reads the result dialog (or the page body when there is
// none) for the success marker.
func (b *Booker) checkSuccess(ctx context.Context) error {
	modal, err := b.page(ctx, 2*time.Second).Element(b.sel.ModalContent)
	if err == nil {
		text, terr := modal.Text()
		if terr != nil {
			return fmt.Errorf("read result dialog: %w", terr)
		}
		b.logger.Info("result dialog", zap.String("text", strings.TrimSpace(text)))
		if ContainsSuccess(text) {
			return nil
		}
		return ErrNoSuccessMarker
	}

	body, err := b.page(ctx, 2*time.Second).Element("body")
	if err != nil {
		return fmt.Errorf("read result page: %w", err)
	}
	text, err := body.Text()
	if err != nil {
		return fmt.Errorf("read result page: %w", err)
	}
	if ContainsSuccess(text) {
		return nil
	}
	return ErrNoSuccessMarker
}

// clickByText clicks the first element matching the XPath whose text
// contains want.
func (b *Booker) clickByText(ctx context.Context, xpath, want string) error {
	els, err := b.sess.Page().Context(ctx).ElementsX(xpath)
	if err != nil {
		return fmt.Errorf("find %s: %w", xpath, err)
	}
	for _, el := range els {
		text, err := el.Text()
		if err != nil {
			continue
		}
		if strings.Contains(text, want) {
			if err := b.human.Click(ctx, b.sess.Page(), el); err != nil {
				return fmt.Errorf("click %q: %w", want, err)
			}
			return b.human.Delay(ctx, 2*time.Second, 3*time.Second)
		}
	}
	return fmt.Errorf("text %q not found", want)
}

// page returns the session page bound to ctx with a wait timeout.
func (b *Booker) page(ctx context.Context, timeout time.Duration) *rod.Page {
	return b.sess.Page().Context(ctx).Timeout(timeout)
}

// fail saves a debug screenshot (debug mode only) and returns err.
func (b *Booker) fail(ctx context.Context, err error) error {
	if b.cfg.Debug && b.sess.Page() != nil {
		if serr := b.sess.Screenshot(context.WithoutCancel(ctx), ErrorScreenshot); serr != nil {
			b.logger.Warn("debug screenshot failed", zap.Error(serr))
		} else {
			b.logger.Info("debug screenshot saved", zap.String("path", ErrorScreenshot))
		}
	}
	return err
}

// ContainsSuccess reports whether text carries a booking success marker.
func ContainsSuccess(text string) bool {
	for _, marker := range successMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

func elementStyles(el *rod.Element) map[string]string {
	result, err := el.Eval(`() => {
		const styles = window.getComputedStyle(this);
		return {
			display: styles.display,
			visibility: styles.visibility,
			opacity: styles.opacity,
			pointerEvents: styles.pointerEvents
		};
	}`)
	if err != nil {
		return nil
	}

	styles := make(map[string]string)
	for k, v := range result.Value.Map() {
		styles[k] = v.String()
	}
	return styles
}

func elementAttrs(el *rod.Element) map[string]string {
	result, err := el.Eval(`() => {
		const attrs = {};
		for (const attr of this.attributes) {
			attrs[attr.name] = attr.value;
		}
		return attrs;
	}`)
	if err != nil {
		return nil
	}

	attrs := make(map[string]string)
	for k, v := range result.Value.Map() {
		attrs[k] = v.String()
	}
	return attrs
}
