package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"iface-http-service/config"
	"iface-http-service/models"
	"iface-http-service/utils"
)

// StudentQuery 学生列表的查询条件
type StudentQuery struct {
	Keyword string `form:"q" json:"q"`
	ClassID uint   `form:"classId" json:"classId"`
	models.PaginationQuery
}

// UpdateStudentRequest 更新学生档案的请求参数
type UpdateStudentRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	FatherName  string `json:"father_name"`
	Gender      string `json:"gender"`
	ClassID     uint   `json:"class_id"`
	ParentPhone string `json:"parent_phone"`
	IsActive    *bool  `json:"is_active"`
}

// InterfaceStudentService defines the student service interface
type InterfaceStudentService interface {
	GetAllStudents(query StudentQuery) ([]models.Student, int64, error)
	GetStudentByID(studentID uint) (*models.Student, error)
	GetStudentByExternalID(externalID string) (*models.Student, error)
	UpdateStudent(studentID uint, req UpdateStudentRequest) (*models.Student, error)
	DeleteStudent(studentID uint) error
}

// StudentService 学生档案的查询和维护。
// 档案创建只走导入流水线，这里不提供单独的创建入口。
type StudentService struct {
	DB     *gorm.DB
	Config *config.Config
}

// NewStudentService 创建一个新的学生服务
func NewStudentService(db *gorm.DB, cfg *config.Config) InterfaceStudentService {
	return &StudentService{
		DB:     db,
		Config: cfg,
	}
}

// 1 GetAllStudents 按条件分页获取学生列表
func (s *StudentService) GetAllStudents(query StudentQuery) ([]models.Student, int64, error) {
	db := s.DB.Model(&models.Student{})

	if query.Keyword != "" {
		keyword := "%" + query.Keyword + "%"
		db = db.Where("name LIKE ? OR external_id LIKE ?", keyword, keyword)
	}
	if query.ClassID != 0 {
		db = db.Where("class_id = ?", query.ClassID)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	pageNum := query.PageNum
	if pageNum < 1 {
		pageNum = 1
	}
	pageSize := query.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	order := "id"
	if query.Desc {
		order = "id DESC"
	}

	var students []models.Student
	err := db.Order(order).
		Offset((pageNum - 1) * pageSize).
		Limit(pageSize).
		Preload("Class").
		Preload("Provisioning").
		Preload("Provisioning.DeviceLinks").
		Find(&students).Error
	if err != nil {
		return nil, 0, err
	}

	return students, total, nil
}

// 2 GetStudentByID 按ID获取学生及其登记状态
func (s *StudentService) GetStudentByID(studentID uint) (*models.Student, error) {
	var student models.Student
	err := s.DB.Preload("Class").
		Preload("Provisioning").
		Preload("Provisioning.DeviceLinks").
		Preload("Provisioning.DeviceLinks.Terminal").
		First(&student, studentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("学生不存在")
		}
		return nil, err
	}
	return &student, nil
}

// 3 GetStudentByExternalID 按学号获取学生
func (s *StudentService) GetStudentByExternalID(externalID string) (*models.Student, error) {
	var student models.Student
	err := s.DB.Preload("Class").
		Where("external_id = ?", strings.TrimSpace(externalID)).
		First(&student).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("学生不存在")
		}
		return nil, err
	}
	return &student, nil
}

// 4 UpdateStudent 更新学生档案。学号不可修改，完整姓名随姓和名重算。
func (s *StudentService) UpdateStudent(studentID uint, req UpdateStudentRequest) (*models.Student, error) {
	student, err := s.GetStudentByID(studentID)
	if err != nil {
		return nil, err
	}

	if req.FirstName != "" {
		student.FirstName = utils.NormalizeNamePart(req.FirstName)
	}
	if req.LastName != "" {
		student.LastName = utils.NormalizeNamePart(req.LastName)
	}
	if req.FatherName != "" {
		student.FatherName = utils.NormalizeNamePart(req.FatherName)
	}
	if req.Gender != "" {
		student.Gender = utils.NormalizeGender(req.Gender)
	}
	if req.ClassID != 0 {
		var class models.Class
		if err := s.DB.First(&class, req.ClassID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errors.New("班级不存在")
			}
			return nil, err
		}
		student.ClassID = req.ClassID
	}
	if req.ParentPhone != "" {
		student.ParentPhone = strings.TrimSpace(req.ParentPhone)
	}
	if req.IsActive != nil {
		student.IsActive = *req.IsActive
	}

	student.Name = models.FullName(student.LastName, student.FirstName)

	if err := s.DB.Save(student).Error; err != nil {
		return nil, err
	}
	return student, nil
}

// 5 DeleteStudent 删除学生及其登记记录
func (s *StudentService) DeleteStudent(studentID uint) error {
	student, err := s.GetStudentByID(studentID)
	if err != nil {
		return err
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		var record models.ProvisioningRecord
		err := tx.Where("student_id = ?", studentID).First(&record).Error
		if err == nil {
			if err := tx.Where("provisioning_record_id = ?", record.ID).Delete(&models.ProvisioningDeviceLink{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&record).Error; err != nil {
				return err
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		return tx.Delete(student).Error
	})
}
