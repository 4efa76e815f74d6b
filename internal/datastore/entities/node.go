package entities

import "time"

// Node status values.
const (
	NodeStatusOnline  = "online"
	NodeStatusOffline = "offline"
)

// Node is the authoritative identity record of one compute node, keyed by
// the (box, slot, cpu) triple its agent reports.
type Node struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	BoxID        int       `gorm:"not null;uniqueIndex:idx_nodes_box_slot_cpu,priority:1" json:"box_id"`
	SlotID       int       `gorm:"not null;uniqueIndex:idx_nodes_box_slot_cpu,priority:2" json:"slot_id"`
	CPUID        int       `gorm:"not null;uniqueIndex:idx_nodes_box_slot_cpu,priority:3" json:"cpu_id"`
	SRIOID       int       `gorm:"default:0" json:"srio_id"`
	HostIP       string    `gorm:"size:64;not null;index" json:"host_ip"`
	Hostname     string    `gorm:"size:255;default:''" json:"hostname"`
	ServicePort  int       `gorm:"default:0" json:"service_port"`
	BoxType      string    `gorm:"size:64;default:''" json:"box_type"`
	BoardType    string    `gorm:"size:64;default:''" json:"board_type"`
	CPUType      string    `gorm:"size:64;default:''" json:"cpu_type"`
	OSType       string    `gorm:"size:64;default:''" json:"os_type"`
	ResourceType string    `gorm:"size:64;default:''" json:"resource_type"`
	CPUArch      string    `gorm:"size:64;default:''" json:"cpu_arch"`
	GPUInfo      string    `gorm:"type:text;default:''" json:"gpu_info"`
	Status       string    `gorm:"size:16;not null;default:'online'" json:"status"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Node) TableName() string {
	return "nodes"
}
