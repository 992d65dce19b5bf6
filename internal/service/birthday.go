package service

import (
	"context"
	"sort"
	"time"

	"github.com/Payphone-Digital/contacts-api/internal/constants"
	"github.com/Payphone-Digital/contacts-api/internal/dto"
	apperrors "github.com/Payphone-Digital/contacts-api/internal/errors"
	ctxutil "github.com/Payphone-Digital/contacts-api/pkg/context"
	"github.com/Payphone-Digital/contacts-api/pkg/logger"
)

// UpcomingBirthdays returns the owner's contacts whose next birthday falls in
// [today, today+7 days], soonest first.
func (s *ContactService) UpcomingBirthdays(ctx context.Context, ownerID uint) ([]dto.ContactResponse, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "UpcomingBirthdays")

	contacts, err := s.contacts.ListAllByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	today := dateOf(s.now().In(s.loc))
	end := today.AddDate(0, 0, constants.BirthdayWindowDays)

	type upcoming struct {
		on      time.Time
		contact dto.ContactResponse
	}
	var found []upcoming

	for i := range contacts {
		next := nextBirthday(time.Time(contacts[i].Birthday), today)
		if next.After(end) {
			continue
		}
		found = append(found, upcoming{on: next, contact: contactResponse(&contacts[i])})
	}

	if len(found) == 0 {
		return nil, apperrors.ErrNoUpcomingBirthday
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].on.Before(found[j].on)
	})

	out := make([]dto.ContactResponse, 0, len(found))
	for _, u := range found {
		out = append(out, u.contact)
	}

	logger.DebugWithContext(ctx, "Upcoming birthdays resolved").
		Uint("owner_id", ownerID).
		Int("count", len(out)).
		Log()

	return out, nil
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// nextBirthday projects birthday onto today's year, or the next one when it
// has already passed.
func nextBirthday(birthday, today time.Time) time.Time {
	_, month, day := birthday.Date()

	next := onYear(today.Year(), month, day, today.Location())
	if next.Before(today) {
		next = onYear(today.Year()+1, month, day, today.Location())
	}
	return next
}

// onYear keeps Feb 29 birthdays on Feb 28 in common years.
func onYear(year int, month time.Month, day int, loc *time.Location) time.Time {
	if month == time.February && day == 29 && !isLeap(year) {
		day = 28
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
