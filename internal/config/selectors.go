package config

import "fmt"

// Selectors locates the elements the booking flow interacts with.
// XPath unless noted; the reservation site is server-rendered with a
// handful of stable ids and classes.
type Selectors struct {
	UsernameInput string `yaml:"username_input"`
	PasswordInput string `yaml:"password_input"`
	CaptchaImage  string `yaml:"captcha_img"`
	CaptchaInput  string `yaml:"captcha_input"`
	LoginButton   string `yaml:"login_button"`

	CampusName   string `yaml:"campus_name"`
	FacilityName string `yaml:"facility_name"`
	DateNumber   string `yaml:"date_number"`

	// TimeSlotRow is a template; fill with the configured slot text.
	TimeSlotRow string `yaml:"time_slot"`

	// CSS selectors
	BookableSlot      string `yaml:"bookable_slot"`
	NotificationClose string `yaml:"notification_close"`
	ModalContent      string `yaml:"modal_content"`

	BookButton string `yaml:"book_button"`
}

// DefaultSelectors returns the selector set for the SYSU gym site.
func DefaultSelectors() Selectors {
	return Selectors{
		UsernameInput: `//*[@id="username"]`,
		PasswordInput: `//*[@id="password"]`,
		CaptchaImage:  `//*[@id="captchaImg"]`,
		CaptchaInput:  `//*[@id="captcha"]`,
		LoginButton:   `//*[@id="fm1"]/section[2]/input[4]`,

		CampusName:   `//*[@class="campus-name"]`,
		FacilityName: `//*[@class="facility-name"]`,
		DateNumber:   `//*[@class="date-number"]`,

		TimeSlotRow: `//tr[contains(., "%s")]`,

		BookableSlot:      `button.slot-btn.available`,
		NotificationClose: `button.btn-close`,
		ModalContent:      `.modal-content`,

		BookButton: `//*[@class="btn btn-primary btn-large"]`,
	}
}

// TimeSlotRowFor returns the row XPath for a concrete time slot.
func (s Selectors) TimeSlotRowFor(slot string) string {
	return fmt.Sprintf(s.TimeSlotRow, slot)
}
