package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"SolGuard/internal/model/dto"
	"SolGuard/internal/service"
	"SolGuard/pkg/response"
)

// ListContacts 紧急联系人列表，主联系人排最前
// GET /v1/contacts
func ListContacts(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUserID(ctx, c)
	if !ok {
		return
	}

	items, err := service.GetContactService().List(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, items)
}

// CreateContact 新增紧急联系人
// POST /v1/contacts
func CreateContact(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUserID(ctx, c)
	if !ok {
		return
	}

	var req dto.CreateContactRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	item, err := service.GetContactService().Create(ctx, userID, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, item)
}

// UpdateContact 修改紧急联系人
// PATCH /v1/contacts/:contact_id
func UpdateContact(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUserID(ctx, c)
	if !ok {
		return
	}
	contactID, ok := pathID(ctx, c, "contact_id")
	if !ok {
		return
	}

	var req dto.UpdateContactRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	item, err := service.GetContactService().Update(ctx, userID, contactID, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, item)
}

// DeleteContact 删除紧急联系人
// DELETE /v1/contacts/:contact_id
func DeleteContact(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUserID(ctx, c)
	if !ok {
		return
	}
	contactID, ok := pathID(ctx, c, "contact_id")
	if !ok {
		return
	}

	if err := service.GetContactService().Delete(ctx, userID, contactID); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.NoContent(ctx, c)
}

// SetPrimaryContact 设置主联系人
// POST /v1/contacts/:contact_id/primary
func SetPrimaryContact(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUserID(ctx, c)
	if !ok {
		return
	}
	contactID, ok := pathID(ctx, c, "contact_id")
	if !ok {
		return
	}

	if err := service.GetContactService().SetPrimary(ctx, userID, contactID); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.NoContent(ctx, c)
}
