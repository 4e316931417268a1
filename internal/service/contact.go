package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"SolGuard/config"
	"SolGuard/internal/model"
	"SolGuard/internal/model/dto"
	"SolGuard/internal/repository"
	pkgerrors "SolGuard/pkg/errors"
	"SolGuard/pkg/logger"
	"SolGuard/pkg/snowflake"
	"SolGuard/utils"
)

var (
	contactService *ContactService
	contactSvcOnce sync.Once
)

func GetContactService() *ContactService {
	contactSvcOnce.Do(func() {
		contactService = &ContactService{
			contacts: repository.Contacts(),
			users:    repository.Users(),
		}
	})

	return contactService
}

type ContactService struct {
	contacts *repository.ContactRepo
	users    *repository.UserRepo
}

// Create 新增紧急联系人。手机号加密入库，首个联系人自动成为主联系人，
// 同时把用户从 onboarding 推到 active。
func (s *ContactService) Create(ctx context.Context, userID int64, req *dto.CreateContactRequest) (*dto.ContactItem, error) {
	if req.DisplayName == "" {
		return nil, pkgerrors.ContactNameRequired
	}
	if !utils.ValidatePhone(req.Phone) {
		return nil, pkgerrors.InvalidPhone
	}
	if !utils.ValidateEmail(req.Email) {
		return nil, pkgerrors.InvalidEmail
	}

	count, err := s.contacts.CountByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count contacts: %w", err)
	}
	if count >= int64(config.Cfg.MaxContactsPerUser) {
		return nil, pkgerrors.ContactLimitReached
	}

	publicID, err := snowflake.NextID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate contact id: %w", err)
	}

	cipher, err := utils.EncryptPhone(req.Phone)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt phone: %w", err)
	}

	contact := &model.Contact{
		PublicID:     publicID,
		UserID:       userID,
		DisplayName:  req.DisplayName,
		Relationship: req.Relationship,
		PhoneCipher:  cipher,
		PhoneHash:    utils.HashPhone(req.Phone),
		Email:        req.Email,
		IsPrimary:    req.IsPrimary || count == 0,
	}

	if err := s.contacts.Create(ctx, contact); err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}

	// 有联系人后告警链路才真正生效
	if count == 0 {
		if err := s.users.Updates(ctx, userID, map[string]interface{}{
			"status": string(model.UserStatusActive),
		}); err != nil {
			logger.Logger.Warn("failed to activate user after first contact",
				zap.Int64("user_id", userID),
				zap.Error(err),
			)
		}
	}

	logger.Logger.Info("contact created",
		zap.Int64("user_id", userID),
		zap.Int64("contact_id", contact.PublicID),
		zap.Bool("is_primary", contact.IsPrimary),
	)

	return s.toItem(contact), nil
}

func (s *ContactService) List(ctx context.Context, userID int64) ([]*dto.ContactItem, error) {
	contacts, err := s.contacts.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}

	items := make([]*dto.ContactItem, 0, len(contacts))
	for _, contact := range contacts {
		items = append(items, s.toItem(contact))
	}
	return items, nil
}

func (s *ContactService) Update(ctx context.Context, userID, contactPublicID int64, req *dto.UpdateContactRequest) (*dto.ContactItem, error) {
	contact, err := s.getContact(ctx, userID, contactPublicID)
	if err != nil {
		return nil, err
	}

	if req.DisplayName != nil {
		if *req.DisplayName == "" {
			return nil, pkgerrors.ContactNameRequired
		}
		contact.DisplayName = *req.DisplayName
	}
	if req.Relationship != nil {
		contact.Relationship = *req.Relationship
	}
	if req.Email != nil {
		if !utils.ValidateEmail(*req.Email) {
			return nil, pkgerrors.InvalidEmail
		}
		contact.Email = *req.Email
	}
	if req.Phone != nil {
		if !utils.ValidatePhone(*req.Phone) {
			return nil, pkgerrors.InvalidPhone
		}
		cipher, err := utils.EncryptPhone(*req.Phone)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt phone: %w", err)
		}
		contact.PhoneCipher = cipher
		contact.PhoneHash = utils.HashPhone(*req.Phone)
	}

	if err := s.contacts.Save(ctx, contact); err != nil {
		return nil, fmt.Errorf("failed to update contact: %w", err)
	}

	return s.toItem(contact), nil
}

// Delete 删除联系人。删掉的是主联系人且还有剩余时，最早创建的
// 联系人顶上，保证有联系人的用户总有一个主联系人。
func (s *ContactService) Delete(ctx context.Context, userID, contactPublicID int64) error {
	contact, err := s.getContact(ctx, userID, contactPublicID)
	if err != nil {
		return err
	}

	wasPrimary := contact.IsPrimary
	if err := s.contacts.Delete(ctx, contact); err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}

	if wasPrimary {
		remaining, err := s.contacts.ListByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to list remaining contacts: %w", err)
		}
		if len(remaining) > 0 {
			if err := s.contacts.SetPrimary(ctx, userID, remaining[0].ID); err != nil {
				return fmt.Errorf("failed to promote new primary contact: %w", err)
			}
		}
	}

	logger.Logger.Info("contact deleted",
		zap.Int64("user_id", userID),
		zap.Int64("contact_id", contact.PublicID),
	)

	return nil
}

func (s *ContactService) SetPrimary(ctx context.Context, userID, contactPublicID int64) error {
	contact, err := s.getContact(ctx, userID, contactPublicID)
	if err != nil {
		return err
	}
	return s.contacts.SetPrimary(ctx, userID, contact.ID)
}

func (s *ContactService) getContact(ctx context.Context, userID, contactPublicID int64) (*model.Contact, error) {
	contact, err := s.contacts.GetByPublicID(ctx, userID, contactPublicID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ContactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	return contact, nil
}

func (s *ContactService) toItem(contact *model.Contact) *dto.ContactItem {
	masked := "****"
	if plain, err := utils.DecryptPhone(contact.PhoneCipher); err == nil {
		masked = utils.MaskPhone(plain)
	}

	return &dto.ContactItem{
		ContactID:    strconv.FormatInt(contact.PublicID, 10),
		DisplayName:  contact.DisplayName,
		Relationship: contact.Relationship,
		PhoneMasked:  masked,
		Email:        contact.Email,
		IsPrimary:    contact.IsPrimary,
		CreatedAt:    contact.CreatedAt,
	}
}
