package mapper

import (
	"linkstride-client/internal/dto"
	"linkstride-client/internal/entity"
)

type UserMapper struct{}

func NewUserMapper() *UserMapper {
	return &UserMapper{}
}

func (m *UserMapper) ToEntity(u *dto.UserDTO) *entity.User {
	if u == nil {
		return nil
	}
	return &entity.User{
		Id:    u.Id.String(),
		Email: u.Email,
		Name:  u.Name,
	}
}

func (m *UserMapper) ToSummary(u *entity.User) *dto.UserSummary {
	if u == nil {
		return nil
	}
	return &dto.UserSummary{
		Id:    u.Id,
		Email: u.Email,
		Name:  u.Name,
	}
}
