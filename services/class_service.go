package services

import (
	"errors"

	"gorm.io/gorm"

	"iface-http-service/config"
	"iface-http-service/models"
)

// InterfaceClassService defines the class service interface
type InterfaceClassService interface {
	GetAllClasses() ([]models.Class, error)
	GetClassByID(classID uint) (*models.Class, error)
	CreateClass(name string, grade int) (*models.Class, error)
	UpdateClass(classID uint, name string, grade int) (*models.Class, error)
	DeleteClass(classID uint) error
}

// ClassService 班级的增删改查
type ClassService struct {
	DB     *gorm.DB
	Config *config.Config
}

// NewClassService 创建一个新的班级服务
func NewClassService(db *gorm.DB, cfg *config.Config) InterfaceClassService {
	return &ClassService{
		DB:     db,
		Config: cfg,
	}
}

// 1 GetAllClasses 获取所有班级
func (s *ClassService) GetAllClasses() ([]models.Class, error) {
	var classes []models.Class
	if err := s.DB.Order("grade, name").Find(&classes).Error; err != nil {
		return nil, err
	}
	return classes, nil
}

// 2 GetClassByID 按ID获取班级
func (s *ClassService) GetClassByID(classID uint) (*models.Class, error) {
	var class models.Class
	if err := s.DB.First(&class, classID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("班级不存在")
		}
		return nil, err
	}
	return &class, nil
}

// 3 CreateClass 创建班级，同年级内名称唯一
func (s *ClassService) CreateClass(name string, grade int) (*models.Class, error) {
	var count int64
	if err := s.DB.Model(&models.Class{}).Where("name = ? AND grade = ?", name, grade).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("同年级下班级名称已存在")
	}

	class := models.Class{Name: name, Grade: grade}
	if err := s.DB.Create(&class).Error; err != nil {
		return nil, err
	}
	return &class, nil
}

// 4 UpdateClass 更新班级信息
func (s *ClassService) UpdateClass(classID uint, name string, grade int) (*models.Class, error) {
	class, err := s.GetClassByID(classID)
	if err != nil {
		return nil, err
	}

	if name != "" {
		class.Name = name
	}
	if grade != 0 {
		class.Grade = grade
	}

	if err := s.DB.Save(class).Error; err != nil {
		return nil, err
	}
	return class, nil
}

// 5 DeleteClass 删除班级，仍有学生的班级不能删除
func (s *ClassService) DeleteClass(classID uint) error {
	class, err := s.GetClassByID(classID)
	if err != nil {
		return err
	}

	var count int64
	if err := s.DB.Model(&models.Student{}).Where("class_id = ?", classID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return errors.New("班级下仍有学生，无法删除")
	}

	return s.DB.Delete(class).Error
}
