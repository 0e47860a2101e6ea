package models

import (
	apperrors "CrowdGuard/pkg/errors"
	"CrowdGuard/pkg/util"
	"errors"
	"time"

	"gorm.io/gorm"
)

const (
	SigInvitationCreated  = "invitation.created"
	SigInvitationAccepted = "invitation.accepted"

	invitationTokenBytes = 32
)

var (
	ErrInvitationExpired = apperrors.BadRequest("Invitation has expired")
	ErrSelfInvitation    = apperrors.BadRequest("You cannot invite yourself.")
	ErrAlreadyFamily     = apperrors.BadRequest("This user is already in your family.")
	ErrEmailMismatch     = apperrors.BadRequest("Email does not match the invitation.")
)

// FamilyInvitation moves from pending to accepted, expired or cancelled exactly once.
// Nothing in this service sets cancelled.
type FamilyInvitation struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	InviterEmail string     `json:"inviter_email" gorm:"size:254;not null;index"`
	InviteeEmail string     `json:"invitee_email" gorm:"size:254;not null;index"`
	Token        string     `json:"token" gorm:"size:64;not null;uniqueIndex"`
	Status       string     `json:"status" gorm:"size:20;not null;index"`
	Relationship *string    `json:"relationship" gorm:"size:20"`
	ExpiresAt    time.Time  `json:"expires_at" gorm:"not null;index"`
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`
	AcceptedAt   *time.Time `json:"accepted_at"`
}

func (FamilyInvitation) TableName() string { return "family_invitations" }

func (i *FamilyInvitation) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

type InvitationCreateRequest struct {
	InviterEmail string `json:"inviter_email" binding:"omitempty,email"`
	InviteeEmail string `json:"invitee_email" binding:"required,email"`
	Relationship string `json:"relationship" binding:"omitempty,oneof=spouse parent child sibling grandparent grandchild uncle aunt cousin friend other"`
}

type InvitationAcceptRequest struct {
	Token    string `json:"token" form:"token" binding:"required,max=64"`
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required"`
}

// AcceptResult describes a successful acceptance. Member and Reverse are nil when
// the acceptor was already in the inviter's family.
type AcceptResult struct {
	AlreadyMember bool
	Member        *FamilyMember
	Reverse       *FamilyMember
	Invitation    *FamilyInvitation
}

// InvitationFlow issues, looks up and accepts family invitations.
type InvitationFlow struct {
	db    *gorm.DB
	users UserDirectory
	ttl   time.Duration
	now   func() time.Time
}

func NewInvitationFlow(db *gorm.DB, users UserDirectory, ttl time.Duration) *InvitationFlow {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &InvitationFlow{db: db, users: users, ttl: ttl, now: time.Now}
}

// WithClock replaces the time source.
func (f *InvitationFlow) WithClock(now func() time.Time) *InvitationFlow {
	f.now = now
	return f
}

func (f *InvitationFlow) Users() UserDirectory { return f.users }

// Create issues a pending invitation from inviter to invitee.
func (f *InvitationFlow) Create(inviterEmail, inviteeEmail, relationship string) (*FamilyInvitation, error) {
	inviter := normalizeEmail(inviterEmail)
	invitee := normalizeEmail(inviteeEmail)
	if inviter == invitee {
		return nil, ErrSelfInvitation
	}

	already, err := f.alreadyFamily(inviter, invitee)
	if err != nil {
		return nil, err
	}
	if already {
		return nil, ErrAlreadyFamily
	}

	token, err := util.RandomToken(invitationTokenBytes)
	if err != nil {
		return nil, apperrors.Wrap(err, "generate invitation token")
	}
	inv := &FamilyInvitation{
		InviterEmail: inviter,
		InviteeEmail: invitee,
		Token:        token,
		Status:       InvitationPending,
		ExpiresAt:    f.now().Add(f.ttl),
	}
	if relationship != "" {
		inv.Relationship = &relationship
	}
	if err := f.db.Create(inv).Error; err != nil {
		return nil, err
	}
	util.Sig().Emit(SigInvitationCreated, inv)
	return inv, nil
}

// alreadyFamily reports whether the inviter's active list already holds the invitee:
// a row linked to the invitee, a row with the invitee's derived phone, or a row
// sharing a phone with one of the invitee's own rows.
func (f *InvitationFlow) alreadyFamily(inviter, invitee string) (bool, error) {
	var phones []string
	err := f.db.Model(&FamilyMember{}).
		Where("user_email = ? AND is_active = ?", invitee, true).
		Pluck("phone", &phones).Error
	if err != nil {
		return false, err
	}
	phones = append(phones, util.DerivePhoneID(invitee))

	var n int64
	err = f.db.Model(&FamilyMember{}).
		Where("user_email = ? AND is_active = ?", inviter, true).
		Where("linked_email = ? OR phone IN ?", invitee, phones).
		Count(&n).Error
	return n > 0, err
}

func (f *InvitationFlow) pending(token string) (*FamilyInvitation, error) {
	var inv FamilyInvitation
	err := f.db.Where("token = ? AND status = ?", token, InvitationPending).First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound()
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// pendingUnexpired loads the pending invitation and expires it when overdue.
func (f *InvitationFlow) pendingUnexpired(token string) (*FamilyInvitation, error) {
	inv, err := f.pending(token)
	if err != nil {
		return nil, err
	}
	if inv.IsExpired(f.now()) {
		if err := f.db.Model(&FamilyInvitation{}).
			Where("id = ? AND status = ?", inv.ID, InvitationPending).
			Update("status", InvitationExpired).Error; err != nil {
			return nil, err
		}
		return nil, ErrInvitationExpired
	}
	return inv, nil
}

// Lookup returns a pending, unexpired invitation by token.
func (f *InvitationFlow) Lookup(token string) (*FamilyInvitation, error) {
	return f.pendingUnexpired(token)
}

// Accept links the invitee and the inviter after checking the invitee's credentials.
// Both family rows and the status change are written in one transaction.
func (f *InvitationFlow) Accept(token, email, password string) (*AcceptResult, error) {
	inv, err := f.pendingUnexpired(token)
	if err != nil {
		return nil, err
	}
	if normalizeEmail(email) != inv.InviteeEmail {
		return nil, ErrEmailMismatch
	}
	user, err := f.users.Authenticate(email, password)
	if err != nil {
		return nil, err
	}

	acceptorName := user.DisplayName()
	inviterName := f.users.DisplayName(inv.InviterEmail)
	now := f.now()

	var n int64
	err = f.db.Model(&FamilyMember{}).
		Where("user_email = ? AND name = ? AND is_active = ?", inv.InviterEmail, acceptorName, true).
		Count(&n).Error
	if err != nil {
		return nil, err
	}
	if n > 0 {
		if err := markAccepted(f.db, inv, now); err != nil {
			return nil, err
		}
		res := &AcceptResult{AlreadyMember: true, Invitation: inv}
		util.Sig().Emit(SigInvitationAccepted, inv, res)
		return res, nil
	}

	relationship := RelationshipFriend
	if inv.Relationship != nil && *inv.Relationship != "" {
		relationship = *inv.Relationship
	}

	res := &AcceptResult{Invitation: inv}
	err = f.db.Transaction(func(tx *gorm.DB) error {
		var err error
		res.Member, err = ensureMember(tx, inv.InviterEmail, inv.InviteeEmail, acceptorName, relationship)
		if err != nil {
			return err
		}
		res.Reverse, err = ensureMember(tx, inv.InviteeEmail, inv.InviterEmail, inviterName, RelationshipFriend)
		if err != nil {
			return err
		}
		return markAccepted(tx, inv, now)
	})
	if err != nil {
		// the in-memory copy may already say accepted
		inv.Status, inv.AcceptedAt = InvitationPending, nil
		return nil, err
	}
	util.Sig().Emit(SigInvitationAccepted, inv, res)
	return res, nil
}

// ensureMember finds or creates the row under owner that stands for email. The
// derived phone is tried first, then the alternate one. A free slot gets a new row,
// an active holder is reused, an inactive holder moves on to the next phone.
func ensureMember(tx *gorm.DB, owner, email, name, relationship string) (*FamilyMember, error) {
	for _, phone := range []string{util.DerivePhoneID(email), util.AlternatePhoneID(email)} {
		var existing FamilyMember
		err := tx.Where("user_email = ? AND phone = ?", owner, phone).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			linked := email
			m := &FamilyMember{
				UserEmail:    owner,
				Name:         name,
				Phone:        phone,
				Relationship: relationship,
				LinkedEmail:  &linked,
				IsActive:     true,
			}
			if err := tx.Create(m).Error; err != nil {
				return nil, err
			}
			return m, nil
		}
		if err != nil {
			return nil, err
		}
		if !existing.IsActive {
			continue
		}
		if existing.LinkedEmail == nil {
			if err := tx.Model(&existing).Update("linked_email", email).Error; err != nil {
				return nil, err
			}
			existing.LinkedEmail = &email
		}
		return &existing, nil
	}
	return nil, apperrors.Wrapf(errors.New("both phone identifiers are held by inactive rows"),
		"cannot add %s to the family of %s", email, owner)
}

func markAccepted(db *gorm.DB, inv *FamilyInvitation, now time.Time) error {
	res := db.Model(&FamilyInvitation{}).
		Where("id = ? AND status = ?", inv.ID, InvitationPending).
		Updates(map[string]any{"status": InvitationAccepted, "accepted_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound()
	}
	inv.Status = InvitationAccepted
	inv.AcceptedAt = &now
	return nil
}

// ExpireOverdue marks every overdue pending invitation expired.
func (f *InvitationFlow) ExpireOverdue() (int64, error) {
	res := f.db.Model(&FamilyInvitation{}).
		Where("status = ? AND expires_at < ?", InvitationPending, f.now()).
		Update("status", InvitationExpired)
	return res.RowsAffected, res.Error
}

func GetInvitationByToken(db *gorm.DB, token string) (*FamilyInvitation, error) {
	var inv FamilyInvitation
	err := db.Where("token = ?", token).First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound()
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// CountPendingInvitations counts pending invitations that have not yet expired.
func CountPendingInvitations(db *gorm.DB, now time.Time) (int64, error) {
	var n int64
	err := db.Model(&FamilyInvitation{}).
		Where("status = ? AND expires_at >= ?", InvitationPending, now).
		Count(&n).Error
	return n, err
}
